package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"listening-quiz-service/internal/domain"
)

const (
	maxNameLength    = 24
	maxAvatarLength  = 120_000
	avatarPrefix     = "data:image/"
	roomCodeAttempts = 10
	unknownName      = "???"
)

// CreateRoom allocates a fresh room code, retrying on collision.
func (s *Service) CreateRoom(ctx context.Context) (domain.Room, error) {
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		room := domain.Room{Code: s.newCode(), CreatedAt: domain.UnixMilli(s.now())}
		created, err := s.store.CreateRoom(ctx, room, s.settings.RoomTTL)
		if err != nil {
			return domain.Room{}, fmt.Errorf("create room: %w", err)
		}
		if created {
			s.logger.Info().Str("room", room.Code).Int("attempt", attempt+1).Msg("room created")
			return room, nil
		}
	}
	return domain.Room{}, domain.ErrRoomCodeExhausted
}

// JoinRequest is what a player sends to enter a room.
type JoinRequest struct {
	Name          string
	AvatarDataURL string
}

// Join registers a new player in the room and announces it.
func (s *Service) Join(ctx context.Context, code string, req JoinRequest) (domain.Player, error) {
	name := truncateRunes(strings.TrimSpace(req.Name), maxNameLength)
	if name == "" {
		return domain.Player{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if req.AvatarDataURL != "" && !validAvatar(req.AvatarDataURL) {
		return domain.Player{}, fmt.Errorf("%w: avatar must be a data:image URL of at most %d bytes", domain.ErrInvalidInput, maxAvatarLength)
	}

	roomTTL, err := s.store.RoomTTL(ctx, code)
	if err != nil {
		return domain.Player{}, err
	}

	player := domain.Player{
		ID:            s.newPlayerID(),
		Name:          name,
		AvatarDataURL: req.AvatarDataURL,
		JoinedAt:      domain.UnixMilli(s.now()),
	}
	if err := s.store.AddPlayer(ctx, code, player, s.dependentTTL(roomTTL)); err != nil {
		return domain.Player{}, fmt.Errorf("add player: %w", err)
	}

	s.logger.Info().Str("room", code).Str("player", player.ID).Msg("player joined")
	s.events.emit(ctx, code, domain.EventPlayerJoined, player.Summary())
	return player, nil
}

// RoomExists reports whether code names a live room without loading its roster.
func (s *Service) RoomExists(ctx context.Context, code string) (bool, error) {
	_, err := s.store.RoomTTL(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrRoomNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Players lists the room roster ordered by join time.
func (s *Service) Players(ctx context.Context, code string) ([]domain.PlayerSummary, error) {
	if _, err := s.store.RoomTTL(ctx, code); err != nil {
		return nil, err
	}
	players, err := s.store.Players(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}

	summaries := make([]domain.PlayerSummary, 0, len(players))
	for _, p := range players {
		if p.Name == "" {
			// roster id whose record already expired
			continue
		}
		summaries = append(summaries, p.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].JoinedAt != summaries[j].JoinedAt {
			return summaries[i].JoinedAt < summaries[j].JoinedAt
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

// Leaderboard returns the current cumulative standings of the room.
func (s *Service) Leaderboard(ctx context.Context, code string) ([]domain.LeaderboardEntry, error) {
	if _, err := s.store.RoomTTL(ctx, code); err != nil {
		return nil, err
	}
	players, err := s.store.Players(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	scores, err := s.store.Scores(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	return rankLeaderboard(players, scores), nil
}

func validAvatar(dataURL string) bool {
	return strings.HasPrefix(dataURL, avatarPrefix) && len(dataURL) <= maxAvatarLength
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}

func displayName(p domain.Player) string {
	if p.Name == "" {
		return unknownName
	}
	return p.Name
}
