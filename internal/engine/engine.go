package engine

import (
	"context"
	"fmt"
	"iter"
	"math/rand/v2"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tatianab/werewolf/internal/game"
	"github.com/tatianab/werewolf/internal/models"
)

// Agent decides for an automated seat. One implementation exists per role.
type Agent interface {
	// Act picks a night action, or answers a teammate's message.
	Act(ctx context.Context, turn models.Turn) (models.Action, error)
	// Speak streams a discussion speech. The sequence ends with a fragment
	// whose End is set.
	Speak(ctx context.Context, turn models.Turn) iter.Seq[models.Fragment]
	Vote(ctx context.Context, turn models.Turn) (models.Action, error)
}

// Human answers prompts for the human seat. Await blocks until a response
// to prompt arrives or ctx is done.
type Human interface {
	Await(ctx context.Context, prompt models.Notice) (models.Action, error)
}

// Notifier receives one notice at a time from the loop. An error stops the
// loop.
type Notifier func(models.Notice) error

type Limits struct {
	MaxDay           int
	MaxSteps         int
	MaxRetries       int
	MaxConversations int
}

func DefaultLimits() Limits {
	return Limits{MaxDay: 6, MaxSteps: 500, MaxRetries: 3, MaxConversations: 2}
}

type Options struct {
	// Cast is dealt from Rand when nil.
	Cast   *models.Cast
	Rand   *rand.Rand
	Agents map[models.Role]Agent
	Human  Human
	Limits Limits
	Logger zerolog.Logger
}

// Engine runs one game. Its loop is sequential: Run and Step must not be
// called concurrently. End and Finished may be called from any goroutine.
type Engine struct {
	state  *game.State
	ledger *models.Ledger
	agents map[models.Role]Agent
	human  Human
	limits Limits
	log    zerolog.Logger

	steps     int
	announced bool
	ended     atomic.Bool
	finished  atomic.Bool

	// attempts counts dispatches of an event, failures its rejected
	// decisions. Both are cleared at the end of each day.
	attempts map[models.Event]int
	failures map[models.Event]int
}

func New(opts Options) *Engine {
	cast := opts.Cast
	if cast == nil {
		rng := opts.Rand
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		cast = models.NewCast(rng)
	}
	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	return &Engine{
		state:    game.New(cast),
		ledger:   models.NewLedger(),
		agents:   opts.Agents,
		human:    opts.Human,
		limits:   limits,
		log:      opts.Logger,
		attempts: make(map[models.Event]int),
		failures: make(map[models.Event]int),
	}
}

// State exposes the aggregate for inspection between steps.
func (e *Engine) State() *game.State {
	return e.state
}

func (e *Engine) Ledger() *models.Ledger {
	return e.ledger
}

func (e *Engine) HumanRole() models.Role {
	seat, _ := e.state.Cast.Seat(models.HumanSeat)
	return seat.Role
}

// End forces the game over. The loop stops before its next event.
func (e *Engine) End() {
	e.ended.Store(true)
}

// Finished reports whether Run has completed the game.
func (e *Engine) Finished() bool {
	return e.finished.Load()
}

// Done reports whether the loop should stop: the game is decided or ended,
// a safety cap is exceeded, or nothing is left to process.
func (e *Engine) Done() bool {
	return e.ended.Load() ||
		e.state.GameOver() ||
		e.state.Day > e.limits.MaxDay ||
		e.steps >= e.limits.MaxSteps ||
		e.state.Stack.Len() == 0
}

// Run processes events until Done. It returns early with the error of a
// failed notifier, a failed human wait or ctx.
func (e *Engine) Run(ctx context.Context, notify Notifier) error {
	if notify == nil {
		notify = func(models.Notice) error { return nil }
	}
	for !e.Done() {
		if err := e.Step(ctx, notify); err != nil {
			return err
		}
	}
	if !e.state.GameOver() {
		e.state.End()
	}
	e.finished.Store(true)
	if e.announced {
		return nil
	}
	e.announced = true
	e.log.Info().Int("day", e.state.Day).Int("steps", e.steps).Bool("ended", e.ended.Load()).Msg("game stopped without a winner")
	return notify(e.notice(models.NoticeFinish, "The game ended without a winner."))
}

// Step pops and dispatches one event.
func (e *Engine) Step(ctx context.Context, notify Notifier) error {
	ev, ok := e.state.Stack.Pop()
	if !ok {
		return nil
	}
	e.steps++
	e.attempts[ev]++
	e.log.Debug().
		Str("kind", string(ev.Kind)).
		Int("day", ev.Day).
		Str("phase", string(ev.Phase)).
		Int("target", ev.Target).
		Int("step", e.steps).
		Msg("dispatch")

	var err error
	switch ev.Kind {
	case models.KindDisplay:
		err = notify(e.notice(models.NoticeDisplay, ev.Content))
	case models.KindPhaseChange:
		err = e.phaseChange(ev, notify)
	case models.KindAllowAct:
		err = e.allowAct(ctx, ev, notify)
	case models.KindConversation:
		err = e.conversation(ctx, ev, notify)
	case models.KindKill:
		err = e.kill(ev, notify)
	case models.KindResurrection:
		err = e.resurrection(ev, notify)
	case models.KindCheck:
		err = e.check(ev, notify)
	case models.KindAllowSpeak:
		err = e.allowSpeak(ctx, ev, notify)
	case models.KindAllowVote:
		err = e.allowVote(ctx, ev, notify)
	case models.KindVote:
		err = e.vote(ev, notify)
	case models.KindDayChange:
		err = e.dayChange(notify)
	default:
		e.log.Warn().Str("kind", string(ev.Kind)).Msg("unknown event kind dropped")
	}
	if err != nil {
		return fmt.Errorf("%s on day %d: %w", ev.Kind, ev.Day, err)
	}
	return nil
}

func (e *Engine) agent(role models.Role) (Agent, error) {
	a, ok := e.agents[role]
	if !ok || a == nil {
		return nil, fmt.Errorf("%w: no agent for %s", models.ErrMalformed, role)
	}
	return a, nil
}

// turn briefs seat for a decision.
func (e *Engine) turn(seat *models.Seat, message string) models.Turn {
	return models.Turn{
		Day:              e.state.Day,
		Phase:            e.state.Phase,
		Seat:             *seat,
		Alive:            e.state.Cast.Alive(),
		Teammate:         e.state.Cast.Teammate(seat.ID),
		JustKilled:       append([]int(nil), e.state.JustKilled...),
		Conversations:    e.state.Conversations,
		MaxConversations: e.limits.MaxConversations,
		Message:          message,
		Briefing:         e.ledger.Briefing(seat.ID),
	}
}

func (e *Engine) notice(typ models.NoticeType, content string) models.Notice {
	return models.Notice{
		Type:    typ,
		Content: content,
		Day:     e.state.Day,
		Phase:   e.state.Phase,
		Alive:   e.state.Cast.Alive(),
	}
}

func newMessageID() string {
	return uuid.NewString()
}
