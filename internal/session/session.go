package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tatianab/werewolf/internal/engine"
	"github.com/tatianab/werewolf/internal/models"
)

var (
	ErrNoPendingInput  = errors.New("no input is pending")
	ErrInvalidResponse = errors.New("invalid response")
	ErrNotFound        = errors.New("session not found")
	ErrStreaming       = errors.New("session is already streaming")

	errEnded = errors.New("session ended")
)

// Factory builds a fresh engine whose human seat answers through h.
type Factory func(h engine.Human) *engine.Engine

// Session is one game with a human at seat 6. The engine loop runs inside
// Stream; Respond, End and Reset may be called from other goroutines.
type Session struct {
	ID        string
	CreatedAt time.Time

	factory Factory
	log     zerolog.Logger

	mu       sync.Mutex
	eng      *engine.Engine
	pending  *models.Notice
	replies  chan models.Action
	quit     chan struct{}
	ended    bool
	cancel   context.CancelFunc
	done     chan struct{}
	snapshot snapshot
}

// snapshot is the part of the game state a review needs. It is refreshed on
// the loop goroutine so readers never touch the live state.
type snapshot struct {
	day    int
	winner models.Winner
	seats  []models.Seat
}

func New(id string, factory Factory, log zerolog.Logger) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		factory:   factory,
		log:       log.With().Str("session", id).Logger(),
	}
	s.rebuild()
	return s
}

// rebuild installs a new engine. The caller holds mu or owns s exclusively.
func (s *Session) rebuild() {
	s.replies = make(chan models.Action, 1)
	s.quit = make(chan struct{})
	s.pending = nil
	s.ended = false
	s.eng = s.factory(s)
	s.snapshot = takeSnapshot(s.eng)
}

func takeSnapshot(eng *engine.Engine) snapshot {
	st := eng.State()
	snap := snapshot{day: st.Day, winner: st.Winner()}
	for _, seat := range st.Cast.Seats() {
		snap.seats = append(snap.seats, *seat)
	}
	return snap
}

// Await implements engine.Human. It parks the loop until Respond delivers an
// action that satisfies prompt.
func (s *Session) Await(ctx context.Context, prompt models.Notice) (models.Action, error) {
	s.mu.Lock()
	s.pending = &prompt
	replies, quit := s.replies, s.quit
	s.mu.Unlock()

	select {
	case a := <-replies:
		return a, nil
	case <-quit:
		s.clearPending()
		return models.Action{}, errEnded
	case <-ctx.Done():
		s.clearPending()
		return models.Action{}, ctx.Err()
	}
}

func (s *Session) clearPending() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Pending returns the prompt the human seat must answer, if any.
func (s *Session) Pending() (models.Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return models.Notice{}, false
	}
	return *s.pending, true
}

// WaitPending blocks until the human seat is waiting on a prompt or ctx is
// done.
func (s *Session) WaitPending(ctx context.Context) (models.Notice, error) {
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		if n, ok := s.Pending(); ok {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return models.Notice{}, ctx.Err()
		case <-tick.C:
		}
	}
}

// Respond answers the pending prompt. The session is unchanged when it
// returns an error.
func (s *Session) Respond(resp models.Response) error {
	action, err := resp.Action()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ErrNoPendingInput
	}
	action = s.pending.Fill(action)
	if err := s.pending.Allows(action); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	select {
	case s.replies <- action:
	default:
		return ErrNoPendingInput
	}
	s.pending = nil
	return nil
}

// Stream runs the game, handing each notice to emit, until the game is over,
// a safety cap is hit, the session is ended or ctx is done. Only one stream
// may run at a time. A prompt interrupted by ctx is asked again by the next
// stream.
func (s *Session) Stream(ctx context.Context, emit engine.Notifier) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrStreaming
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	eng := s.eng
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel, s.done = nil, nil
		s.mu.Unlock()
		close(done)
	}()

	notify := func(n models.Notice) error {
		snap := takeSnapshot(eng)
		s.mu.Lock()
		s.snapshot = snap
		s.mu.Unlock()
		return emit(n)
	}

	s.log.Info().Msg("stream started")
	err := eng.Run(runCtx, notify)
	if errors.Is(err, errEnded) {
		// The human wait was abandoned; finishing now only announces the end.
		err = eng.Run(runCtx, notify)
	}
	switch {
	case err == nil:
		s.log.Info().Bool("finished", eng.Finished()).Msg("stream stopped")
	case runCtx.Err() != nil:
		s.log.Info().Err(err).Msg("stream cancelled")
		return nil
	default:
		s.log.Error().Err(err).Msg("stream failed")
	}
	return err
}

// End stops the game. A running stream announces the end and returns.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.End()
	if !s.ended {
		s.ended = true
		close(s.quit)
	}
}

// Reset stops any running stream and deals a new game in place.
func (s *Session) Reset() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
	s.log.Info().Str("human_role", string(s.eng.HumanRole())).Msg("session reset")
}

func (s *Session) HumanRole() models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.HumanRole()
}

// Finished reports whether the game has run to its end.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Finished()
}

// Review returns the seats and the shared log of the game so far. Until the
// game is over it hides the other seats' roles and the night record.
func (s *Session) Review() *models.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats := append([]models.Seat(nil), s.snapshot.seats...)
	entries := s.eng.Ledger().Shared()
	if !s.ended && !s.eng.Finished() && s.snapshot.winner == models.NoWinner {
		for i := range seats {
			if !seats[i].Human() {
				seats[i].Role = ""
				seats[i].HealCharge, seats[i].PoisonCharge = 0, 0
			}
		}
		entries = slices.DeleteFunc(entries, func(e models.Entry) bool {
			return e.Phase == models.PhaseNight
		})
	}
	return &models.Review{
		ID:        s.ID,
		HumanRole: s.eng.HumanRole(),
		Winner:    s.snapshot.winner,
		Days:      s.snapshot.day,
		Seats:     seats,
		Entries:   entries,
	}
}
