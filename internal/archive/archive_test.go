package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tatianab/werewolf/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testReview(id string) *models.Review {
	cast := models.CastFromRoles(models.Deck)
	var seats []models.Seat
	for _, s := range cast.Seats() {
		seats = append(seats, *s)
	}
	seats[0].Alive = false
	return &models.Review{
		ID:        id,
		HumanRole: models.Witch,
		Winner:    models.VillagersWin,
		Days:      2,
		Seats:     seats,
		Entries: []models.Entry{
			{Day: 1, Phase: models.PhaseNight, Kind: models.KindKill, Source: 1, Target: 3, Content: "Player 1 killed Player 3."},
			{Day: 1, Phase: models.PhaseVoting, Kind: models.KindVote, Source: 4, Target: 1, Content: "Player 4 voted for Player 1."},
		},
	}
}

func TestSaveAndLoadGame(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	want := testReview("g1")

	if err := store.SaveGame(ctx, want, time.Now()); err != nil {
		t.Fatalf("SaveGame() error: %v", err)
	}
	got, err := store.LoadGame(ctx, "g1")
	if err != nil {
		t.Fatalf("LoadGame() error: %v", err)
	}
	if got.Winner != want.Winner || got.HumanRole != want.HumanRole || got.Days != want.Days {
		t.Errorf("LoadGame() = %+v, want %+v", got, want)
	}
	if len(got.Seats) != models.SeatCount || got.Seats[0].Alive || got.Seats[5].Role != models.Witch {
		t.Errorf("seats = %+v", got.Seats)
	}
	if len(got.Entries) != 2 || got.Entries[1] != want.Entries[1] {
		t.Errorf("entries = %+v", got.Entries)
	}
}

func TestSaveGameReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	r := testReview("g1")
	if err := store.SaveGame(ctx, r, time.Now()); err != nil {
		t.Fatalf("SaveGame() error: %v", err)
	}
	r.Winner = models.WerewolvesWin
	r.Entries = r.Entries[:1]
	if err := store.SaveGame(ctx, r, time.Now()); err != nil {
		t.Fatalf("second SaveGame() error: %v", err)
	}
	got, err := store.LoadGame(ctx, "g1")
	if err != nil {
		t.Fatalf("LoadGame() error: %v", err)
	}
	if got.Winner != models.WerewolvesWin || len(got.Entries) != 1 {
		t.Errorf("LoadGame() = %+v", got)
	}
}

func TestLoadMissingGame(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.LoadGame(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadGame() error = %v, want ErrNotFound", err)
	}
}

func TestListGamesNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	saves := []struct {
		id     string
		offset time.Duration
	}{
		{"old", 0},
		{"new", 2 * time.Hour},
		{"mid", time.Hour},
	}
	for _, sv := range saves {
		if err := store.SaveGame(ctx, testReview(sv.id), base.Add(sv.offset)); err != nil {
			t.Fatalf("SaveGame(%s) error: %v", sv.id, err)
		}
	}

	games, err := store.ListGames(ctx, 2)
	if err != nil {
		t.Fatalf("ListGames() error: %v", err)
	}
	if len(games) != 2 || games[0].ID != "new" || games[1].ID != "mid" {
		t.Fatalf("ListGames() = %+v", games)
	}
	if !games[0].FinishedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("FinishedAt = %v", games[0].FinishedAt)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Error("Open() with a blank path succeeded")
	}
}
