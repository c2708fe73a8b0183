package app_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listening-quiz-service/internal/app"
	"listening-quiz-service/internal/domain"
)

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	f := newFixture(t, nil)
	codes := []string{"AAAA", "AAAA", "AAAA", "BBBB"}
	f.service.WithCodeGenerator(func() string {
		code := codes[0]
		codes = codes[1:]
		return code
	})

	first, err := f.service.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AAAA", first.Code)
	assert.Equal(t, t0.UnixMilli(), first.CreatedAt)

	second, err := f.service.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBBB", second.Code)

	ttl, err := f.store.RoomTTL(context.Background(), "BBBB")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)
}

func TestCreateRoomGivesUp(t *testing.T) {
	f := newFixture(t, nil)
	f.service.WithCodeGenerator(func() string { return "AAAA" })

	_, err := f.service.CreateRoom(context.Background())
	require.NoError(t, err)
	_, err = f.service.CreateRoom(context.Background())
	assert.ErrorIs(t, err, domain.ErrRoomCodeExhausted)
}

func TestCreateRoomDefaultCodes(t *testing.T) {
	f := newFixture(t, nil)
	room, err := f.service.CreateRoom(context.Background())
	require.NoError(t, err)
	require.Len(t, room.Code, 4)
	for _, r := range room.Code {
		assert.True(t, strings.ContainsRune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789", r), "unexpected %q", r)
	}
}

func TestJoin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	code := f.room(t)

	tests := []struct {
		name     string
		code     string
		req      app.JoinRequest
		want     error
		wantName string
	}{
		{name: "trims name", code: code, req: app.JoinRequest{Name: "  Ana  "}, wantName: "Ana"},
		{name: "truncates to 24 runes", code: code, req: app.JoinRequest{Name: strings.Repeat("é", 30)}, wantName: strings.Repeat("é", 24)},
		{name: "accepts image avatar", code: code, req: app.JoinRequest{Name: "Bo", AvatarDataURL: "data:image/png;base64,AAAA"}, wantName: "Bo"},
		{name: "blank name", code: code, req: app.JoinRequest{Name: "   "}, want: domain.ErrInvalidInput},
		{name: "avatar not an image", code: code, req: app.JoinRequest{Name: "Cy", AvatarDataURL: "data:text/plain,hi"}, want: domain.ErrInvalidInput},
		{name: "avatar too large", code: code, req: app.JoinRequest{Name: "Cy", AvatarDataURL: "data:image/png;base64," + strings.Repeat("A", 120_000)}, want: domain.ErrInvalidInput},
		{name: "unknown room", code: "NOPE", req: app.JoinRequest{Name: "Dee"}, want: domain.ErrRoomNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			player, err := f.service.Join(ctx, tc.code, tc.req)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, player.Name)
			assert.NotEmpty(t, player.ID)
			assert.Equal(t, t0.UnixMilli(), player.JoinedAt)
		})
	}
}

func TestJoinBroadcastsSummary(t *testing.T) {
	f := newFixture(t, nil)
	code := f.room(t)
	events, cancel := f.hub.Subscribe(code)
	defer cancel()

	player, err := f.service.Join(context.Background(), code, app.JoinRequest{Name: "Ana", AvatarDataURL: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	evt := <-events
	assert.Equal(t, domain.EventPlayerJoined, evt.Name)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, player.ID, payload["id"])
	assert.Equal(t, "Ana", payload["name"])
	assert.NotContains(t, payload, "avatarDataUrl")
}

func TestPlayersAndLeaderboard(t *testing.T) {
	eachStore(t, catalogOf(1), func(t *testing.T, f *fixture) {
		ctx := context.Background()
		code := f.room(t)
		f.clock.Advance(time.Millisecond)
		bo := f.join(t, code, "Bo")
		f.clock.Advance(-time.Millisecond)
		ana := f.join(t, code, "Ana")

		players, err := f.service.Players(ctx, code)
		require.NoError(t, err)
		require.Len(t, players, 2)
		assert.Equal(t, ana, players[0].ID, "ordered by join time")
		assert.Equal(t, bo, players[1].ID)

		require.NoError(t, f.store.CreditScore(ctx, code, "r0", bo, 150, time.Hour))
		board, err := f.service.Leaderboard(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, []domain.LeaderboardEntry{
			{ID: bo, Name: "Bo", Score: 150},
			{ID: ana, Name: "Ana"},
		}, board)

		_, err = f.service.Players(ctx, "NOPE")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestRoomExists(t *testing.T) {
	eachStore(t, catalogOf(1), func(t *testing.T, f *fixture) {
		ctx := context.Background()
		code := f.room(t)

		ok, err := f.service.RoomExists(ctx, code)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.service.RoomExists(ctx, "NOPE")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRoomExistsAfterExpiry(t *testing.T) {
	f := newFixture(t, catalogOf(1))
	code := f.room(t)

	f.clock.Advance(app.DefaultSettings().RoomTTL)
	ok, err := f.service.RoomExists(context.Background(), code)
	require.NoError(t, err)
	assert.False(t, ok)
}
