package app

import (
	"math"
	"sort"

	"listening-quiz-service/internal/domain"
)

const pointsPerDifficulty = 100

// scoreAnswer returns whether answer is correct and the points it earns. A correct answer is
// worth 100 per difficulty level plus a speed bonus of up to the same amount, scaled by how
// much of the answering window was left. Wrong or missing answers earn nothing.
func scoreAnswer(round domain.Round, answer *domain.Answer) (bool, int) {
	if answer == nil || answer.ChoiceIndex != round.CorrectIndex {
		return false, 0
	}
	window := round.EndsAt - round.AnswerStartAt
	if window <= 0 {
		return true, 0
	}

	base := pointsPerDifficulty * round.Difficulty
	ratio := float64(round.EndsAt-answer.AnsweredAt) / float64(window)
	ratio = math.Max(0, math.Min(1, ratio))
	bonus := int(math.Round(float64(base) * ratio))
	return true, base + bonus
}

// rankLeaderboard orders players by cumulative score desc, then name, then id.
func rankLeaderboard(players []domain.Player, scores map[string]int64) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.LeaderboardEntry{
			ID:    p.ID,
			Name:  displayName(p),
			Score: scores[p.ID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

func optionLabel(idx int) string {
	if idx < 0 || idx >= len(domain.OptionLabels) {
		return ""
	}
	return domain.OptionLabels[idx]
}
