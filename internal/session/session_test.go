package session

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tatianab/werewolf/internal/engine"
	"github.com/tatianab/werewolf/internal/models"
)

type bot struct {
	act  models.Action
	vote models.Action
}

func (b bot) Act(context.Context, models.Turn) (models.Action, error) {
	if b.act.Action == "" {
		return models.Action{}, models.ErrAbilityMisuse
	}
	return b.act, nil
}

func (b bot) Speak(context.Context, models.Turn) iter.Seq[models.Fragment] {
	return func(yield func(models.Fragment) bool) {
		if yield(models.Fragment{Text: "I have nothing to hide."}) {
			yield(models.Fragment{End: true})
		}
	}
}

func (b bot) Vote(context.Context, models.Turn) (models.Action, error) {
	return b.vote, nil
}

// Seats: werewolves 1 and 2, villagers 3 and 4, witch 5, the human seer 6.
func testFactory(h engine.Human) *engine.Engine {
	return engine.New(engine.Options{
		Cast: models.CastFromRoles([models.SeatCount]models.Role{
			models.Werewolf, models.Werewolf, models.Villager, models.Villager, models.Witch, models.Seer,
		}),
		Agents: map[models.Role]engine.Agent{
			models.Werewolf: bot{
				act:  models.Action{Action: models.ActKill, Target: 3},
				vote: models.Action{Action: models.ActVote, Target: 4},
			},
			models.Villager: bot{vote: models.Action{Action: models.ActVote, Target: 1}},
			models.Witch: bot{
				act:  models.Action{Action: models.ActNone},
				vote: models.Action{Action: models.ActVote, Target: 1},
			},
		},
		Human:  h,
		Logger: zerolog.Nop(),
	})
}

type stream struct {
	notices chan models.Notice
	done    chan error
	cancel  context.CancelFunc
}

func startStream(t *testing.T, s *Session) *stream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{
		notices: make(chan models.Notice, 256),
		done:    make(chan error, 1),
		cancel:  cancel,
	}
	go func() {
		st.done <- s.Stream(ctx, func(n models.Notice) error {
			st.notices <- n
			return nil
		})
	}()
	t.Cleanup(cancel)
	return st
}

func (st *stream) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-st.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not return")
		return nil
	}
}

func waitPending(t *testing.T, s *Session, typ models.NoticeType) models.Notice {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if n, ok := s.Pending(); ok && n.Type == typ {
			return n
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no pending %s prompt", typ)
	return models.Notice{}
}

func drain(ch chan models.Notice) []models.Notice {
	var out []models.Notice
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestRespondWithoutPrompt(t *testing.T) {
	s := New("s1", testFactory, zerolog.Nop())
	err := s.Respond(models.Response{EType: "CHECK", Target: 1})
	if !errors.Is(err, ErrNoPendingInput) {
		t.Errorf("Respond() error = %v, want ErrNoPendingInput", err)
	}
}

func TestHumanTurnAndEnd(t *testing.T) {
	s := New("s1", testFactory, zerolog.Nop())
	if s.HumanRole() != models.Seer {
		t.Fatalf("HumanRole() = %s, want seer", s.HumanRole())
	}
	st := startStream(t, s)

	prompt := waitPending(t, s, models.NoticeAct)
	if prompt.Seat != models.HumanSeat {
		t.Errorf("prompt seat = %d", prompt.Seat)
	}

	if err := s.Respond(models.Response{EType: "CHECK", Target: 6}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Respond(self) error = %v, want ErrInvalidResponse", err)
	}
	if err := s.Respond(models.Response{EType: "KILL", Target: 1}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Respond(kill) error = %v, want ErrInvalidResponse", err)
	}
	if _, ok := s.Pending(); !ok {
		t.Fatal("rejected response cleared the prompt")
	}
	if err := s.Respond(models.Response{EType: "CHECK", Target: 1}); err != nil {
		t.Fatalf("Respond() error: %v", err)
	}

	waitPending(t, s, models.NoticeUserSpeak)
	s.End()
	if err := st.wait(t); err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	var sawReveal bool
	var finish []models.Notice
	for _, n := range drain(st.notices) {
		if n.Content == "Player 1 is a werewolf." {
			sawReveal = true
		}
		if n.Type == models.NoticeFinish {
			finish = append(finish, n)
		}
	}
	if !sawReveal {
		t.Error("check result was not delivered")
	}
	if len(finish) != 1 || finish[0].Winner != models.NoWinner {
		t.Errorf("finish notices = %+v", finish)
	}
	if !s.Finished() {
		t.Error("Finished() = false after End")
	}

	review := s.Review()
	if review.ID != "s1" || review.HumanRole != models.Seer || len(review.Seats) != models.SeatCount {
		t.Errorf("review = %+v", review)
	}
	var sawKill bool
	for _, e := range review.Entries {
		if strings.HasPrefix(e.Content, "Player 1 killed Player 3.") {
			sawKill = true
		}
	}
	if !sawKill {
		t.Error("review misses the night kill")
	}
	if review.Seats[2].Alive {
		t.Error("review shows Player 3 alive")
	}
}

func TestReviewHidesRolesDuringPlay(t *testing.T) {
	s := New("s1", testFactory, zerolog.Nop())
	st := startStream(t, s)
	waitPending(t, s, models.NoticeAct)

	review := s.Review()
	if s.Finished() {
		t.Fatal("game finished before the seer acted")
	}
	for _, seat := range review.Seats {
		if seat.ID != models.HumanSeat && seat.Role != "" {
			t.Errorf("seat %d role %q visible mid-game", seat.ID, seat.Role)
		}
	}
	if len(review.Seats) != models.SeatCount || review.Seats[5].Role != models.Seer {
		t.Errorf("seats = %+v", review.Seats)
	}
	for _, e := range review.Entries {
		if e.Phase == models.PhaseNight {
			t.Errorf("night entry visible mid-game: %q", e.Content)
		}
	}

	s.End()
	if err := st.wait(t); err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if got := s.Review().Seats[0].Role; got != models.Werewolf {
		t.Errorf("seat 1 role after the game = %q, want werewolf", got)
	}
}

func TestWaitPending(t *testing.T) {
	s := New("s1", testFactory, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.WaitPending(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitPending() without a stream error = %v, want DeadlineExceeded", err)
	}

	st := startStream(t, s)
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := s.WaitPending(ctx)
	if err != nil || n.Type != models.NoticeAct {
		t.Fatalf("WaitPending() = %+v, %v", n, err)
	}
	s.End()
	if err := st.wait(t); err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
}

func TestReconnectRepromptsAndSingleStream(t *testing.T) {
	s := New("s1", testFactory, zerolog.Nop())
	first := startStream(t, s)
	waitPending(t, s, models.NoticeAct)

	err := s.Stream(context.Background(), func(models.Notice) error { return nil })
	if !errors.Is(err, ErrStreaming) {
		t.Fatalf("second Stream() error = %v, want ErrStreaming", err)
	}

	first.cancel()
	if err := first.wait(t); err != nil {
		t.Fatalf("cancelled Stream() error: %v", err)
	}
	if _, ok := s.Pending(); ok {
		t.Fatal("prompt still pending with no stream")
	}

	second := startStream(t, s)
	prompt := waitPending(t, s, models.NoticeAct)
	if len(prompt.Targets[models.ActCheck]) != 5 {
		t.Errorf("re-prompt targets = %v", prompt.Targets)
	}
	s.End()
	if err := second.wait(t); err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
}

func TestReset(t *testing.T) {
	s := New("s1", testFactory, zerolog.Nop())
	st := startStream(t, s)
	waitPending(t, s, models.NoticeAct)

	s.Reset()
	if err := st.wait(t); err != nil {
		t.Fatalf("Stream() error after Reset: %v", err)
	}
	if _, ok := s.Pending(); ok {
		t.Error("prompt survived Reset")
	}
	if s.Finished() {
		t.Error("Finished() = true for a fresh game")
	}
	if got := len(s.Review().Entries); got != 0 {
		t.Errorf("fresh game has %d log entries", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(testFactory, zerolog.Nop())
	s := r.Create()
	if s.ID == "" {
		t.Fatal("Create() returned an empty id")
	}
	got, err := r.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if err := r.Delete(s.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := r.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestNewFactoryDealsRandomCasts(t *testing.T) {
	factory := NewFactory(nil, engine.DefaultLimits(), zerolog.Nop())
	s := New("s1", factory, zerolog.Nop())
	roles := s.eng.State().Cast.Roles()
	var wolves int
	for _, role := range roles {
		if role == models.Werewolf {
			wolves++
		}
	}
	if wolves != 2 {
		t.Errorf("dealt roles = %v", roles)
	}
}
