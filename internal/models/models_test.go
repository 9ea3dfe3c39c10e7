package models

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestNewCastDealsDeck(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		cast := NewCast(rand.New(rand.NewPCG(seed, seed+1)))

		counts := make(map[Role]int)
		for i, s := range cast.Seats() {
			if s.ID != i+1 {
				t.Fatalf("seed %d: seat at index %d has id %d", seed, i, s.ID)
			}
			if !s.Alive {
				t.Errorf("seed %d: seat %d starts dead", seed, s.ID)
			}
			counts[s.Role]++
			if s.Role == Witch && (s.HealCharge != 1 || s.PoisonCharge != 1) {
				t.Errorf("seed %d: witch charges = %d/%d, want 1/1", seed, s.HealCharge, s.PoisonCharge)
			}
			if s.Role != Witch && (s.HealCharge != 0 || s.PoisonCharge != 0) {
				t.Errorf("seed %d: %s seat has potions", seed, s.Role)
			}
		}
		if counts[Werewolf] != 2 || counts[Villager] != 2 || counts[Seer] != 1 || counts[Witch] != 1 {
			t.Fatalf("seed %d: role counts = %v", seed, counts)
		}
	}
}

func TestCastQueries(t *testing.T) {
	cast := CastFromRoles([SeatCount]Role{Werewolf, Werewolf, Villager, Seer, Witch, Villager})

	if got := cast.ActOrder(); !slices.Equal(got, []int{1, 2, 4, 5}) {
		t.Errorf("ActOrder() = %v, want [1 2 4 5]", got)
	}
	if got := cast.Teammate(1); got != 2 {
		t.Errorf("Teammate(1) = %d, want 2", got)
	}
	if got := cast.Teammate(3); got != 0 {
		t.Errorf("Teammate(3) = %d, want 0", got)
	}

	s, _ := cast.Seat(2)
	s.Alive = false
	if got := cast.Teammate(1); got != 0 {
		t.Errorf("Teammate(1) with dead partner = %d, want 0", got)
	}
	if got := cast.AliveExcept(6); !slices.Equal(got, []int{1, 3, 4, 5}) {
		t.Errorf("AliveExcept(6) = %v", got)
	}
	if w, o := cast.Count(); w != 1 || o != 4 {
		t.Errorf("Count() = %d, %d, want 1, 4", w, o)
	}
	if _, ok := cast.Seat(7); ok {
		t.Error("Seat(7) should not exist")
	}
}

func TestBriefing(t *testing.T) {
	l := NewLedger()
	l.AppendSeat(1, Entry{Day: 1, Phase: PhaseNight, Content: "I killed Player 3"})
	l.AppendShared(Entry{Day: 1, Phase: PhaseNight, Content: "Player 1 killed Player 3"})
	l.AppendShared(Entry{Day: 1, Phase: PhaseDay, Content: "Player 3 died"})
	l.AppendShared(Entry{Day: 2, Phase: PhaseDiscussion, Content: "Player 2 spoke"})
	l.AppendSeat(1, Entry{Day: 2, Phase: PhaseNight, Content: "I killed Player 4"})
	l.AppendSeat(1, Entry{Day: 1, Phase: PhaseVoting, Content: "I voted"})
	l.AppendSeat(2, Entry{Day: 1, Phase: PhaseNight, Content: "secret of Player 2"})

	want := "Day 1 (night): I killed Player 3\n" +
		"Day 1 (day): Player 3 died\n" +
		"Day 2 (night): I killed Player 4\n" +
		"Day 2 (discussion): Player 2 spoke"
	got := l.Briefing(1)
	if got != want {
		t.Fatalf("Briefing(1) =\n%s\nwant\n%s", got, want)
	}
	if again := l.Briefing(1); again != got {
		t.Errorf("Briefing is not stable across calls")
	}
}

func TestNoticeAllows(t *testing.T) {
	n := Notice{
		Type:    NoticeAct,
		Actions: []ActionKind{ActKill, ActNone},
		Targets: map[ActionKind][]int{ActKill: {1, 2}},
		Spent:   []ActionKind{ActResurrection},
	}
	tests := []struct {
		action Action
		want   error
	}{
		{Action{Action: ActKill, Target: 2}, nil},
		{Action{Action: ActKill, Target: 4}, ErrInvalidTarget},
		{Action{Action: ActNone}, nil},
		{Action{Action: ActResurrection, Target: 1}, ErrAbilityMisuse},
		{Action{Action: ActCheck, Target: 1}, ErrMalformed},
	}
	for _, tt := range tests {
		err := n.Allows(tt.action)
		if !errors.Is(err, tt.want) {
			t.Errorf("Allows(%+v) = %v, want %v", tt.action, err, tt.want)
		}
	}
}

func TestResponseAction(t *testing.T) {
	a, err := Response{EType: "kill", Target: 3, Reason: "quiet"}.Action()
	if err != nil {
		t.Fatalf("Action() error: %v", err)
	}
	if a.Action != ActKill || a.Target != 3 || a.Reason != "quiet" {
		t.Errorf("Action() = %+v", a)
	}
	if _, err := (Response{EType: "DANCE"}).Action(); !errors.Is(err, ErrMalformed) {
		t.Errorf("unknown etype error = %v, want ErrMalformed", err)
	}
}

func TestReviewSave(t *testing.T) {
	SaveDir = t.TempDir()
	review := &Review{
		ID:        "abc",
		HumanRole: Seer,
		Winner:    VillagersWin,
		Days:      3,
		Entries:   []Entry{{Day: 1, Phase: PhaseNight, Kind: KindKill, Source: 1, Target: 3, Content: "Player 1 killed Player 3"}},
	}
	if err := review.Save("abc"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	names, err := ListReviews()
	if err != nil || len(names) != 1 || names[0] != "abc" {
		t.Fatalf("ListReviews() = %v, %v", names, err)
	}
	loaded, err := LoadReview("abc")
	if err != nil {
		t.Fatalf("LoadReview() error: %v", err)
	}
	if loaded.Winner != VillagersWin || len(loaded.Entries) != 1 || loaded.Entries[0].Target != 3 {
		t.Errorf("LoadReview() = %+v", loaded)
	}
}
