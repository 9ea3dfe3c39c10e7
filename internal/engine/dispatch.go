package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tatianab/werewolf/internal/models"
)

func (e *Engine) phaseChange(ev models.Event, notify Notifier) error {
	e.state.ChangePhase(ev.Change)
	e.publish(ev, ev.String())

	switch ev.Change {
	case models.PhaseDay:
		e.state.FinalizeKills()
		e.publish(models.Event{Kind: models.KindPhaseChange}, e.state.DawnReport())
		e.state.InstallDay()
		e.log.Info().Int("day", e.state.Day).Ints("killed", e.state.JustKilled).Msg("dawn")
	case models.PhaseCountVotes:
		out := e.state.ResolveVotes()
		if out != 0 {
			e.publish(models.Event{Kind: models.KindPhaseChange, Target: out},
				fmt.Sprintf("%s was voted out.", models.SeatName(out)))
		} else {
			e.publish(models.Event{Kind: models.KindPhaseChange}, "No one was voted out.")
		}
		winner, over := e.state.Evaluate()
		e.state.InstallCount()
		if over {
			e.announced = true
			e.publish(models.Event{Kind: models.KindPhaseChange}, fmt.Sprintf("Game over: the %s win.", winner))
			e.log.Info().Str("winner", string(winner)).Int("day", e.state.Day).Int("out", out).Msg("game over")
			n := e.notice(models.NoticeFinish, fmt.Sprintf("%s was voted out. The %s win!", models.SeatName(out), winner))
			if out == 0 {
				n.Content = fmt.Sprintf("The %s win!", winner)
			}
			n.Winner = winner
			n.GameOver = true
			return notify(n)
		}
	}
	return notify(e.notice(models.NoticeDisplay, ev.String()))
}

func (e *Engine) allowAct(ctx context.Context, ev models.Event, notify Notifier) error {
	seat, ok := e.state.Cast.Seat(ev.Target)
	if !ok || !seat.Alive {
		return nil
	}
	action, ok, err := e.choose(ctx, ev, seat, e.nightOptions(seat), notify, func(a Agent) (models.Action, error) {
		return a.Act(ctx, e.turn(seat, ""))
	})
	if err != nil || !ok {
		return err
	}
	if !seat.Human() {
		if err := notify(e.notice(models.NoticeDisplay, stirring(seat.Role))); err != nil {
			return err
		}
	}
	return e.commit(seat, action)
}

// conversation delivers a werewolf's message and asks the recipient to
// answer or strike.
func (e *Engine) conversation(ctx context.Context, ev models.Event, notify Notifier) error {
	if e.attempts[ev] == 1 {
		e.state.Conversations++
		e.publish(ev, fmt.Sprintf("%s told %s: %s", models.SeatName(ev.Source), models.SeatName(ev.Target), ev.Content))
		e.remember(ev.Source, ev, fmt.Sprintf("I told %s: %s", models.SeatName(ev.Target), ev.Content))
		e.remember(ev.Target, ev, fmt.Sprintf("%s told me: %s", models.SeatName(ev.Source), ev.Content))
	}

	seat, ok := e.state.Cast.Seat(ev.Target)
	if !ok || !seat.Alive {
		return nil
	}
	action, ok, err := e.choose(ctx, ev, seat, e.replyOptions(seat, ev), notify, func(a Agent) (models.Action, error) {
		return a.Act(ctx, e.turn(seat, ev.Content))
	})
	if err != nil || !ok {
		return err
	}
	return e.commit(seat, action)
}

func (e *Engine) kill(ev models.Event, notify Notifier) error {
	actor, ok := e.state.Cast.Seat(ev.Source)
	if !ok {
		return nil
	}
	if actor.Role == models.Werewolf {
		if n := e.cancelPack(actor.ID); n > 0 {
			e.log.Debug().Int("seat", actor.ID).Int("cancelled", n).Msg("pack turns cancelled")
		}
	}
	if err := e.state.MarkKilled(ev.Source, ev.Target); err != nil {
		e.log.Warn().Err(err).Int("seat", ev.Source).Int("target", ev.Target).Msg("kill rejected")
		if actor.Human() {
			return notify(e.notice(models.NoticeDisplay, "Your kill had no effect."))
		}
		return nil
	}

	e.publish(ev, withReason(fmt.Sprintf("%s killed %s.", models.SeatName(ev.Source), models.SeatName(ev.Target)), ev.Reason))
	e.remember(ev.Source, ev, withReason(fmt.Sprintf("I killed %s.", models.SeatName(ev.Target)), ev.Reason))

	switch {
	case actor.Human():
		return notify(e.notice(models.NoticeDisplay, fmt.Sprintf("You killed %s.", models.SeatName(ev.Target))))
	case actor.Role == models.Werewolf && e.HumanRole() == models.Werewolf:
		return notify(e.notice(models.NoticeDisplay,
			fmt.Sprintf("Your teammate %s killed %s.", models.SeatName(ev.Source), models.SeatName(ev.Target))))
	}
	return nil
}

// cancelPack drops the pending night turns of werewolf actor and its
// teammate once one of them has committed to a kill.
func (e *Engine) cancelPack(actor int) int {
	mate := e.state.Cast.Teammate(actor)
	inPack := func(id int) bool {
		return id == actor || (mate != 0 && id == mate)
	}
	return e.state.Stack.Remove(func(p models.Event) bool {
		switch p.Kind {
		case models.KindAllowAct, models.KindConversation:
			return inPack(p.Target)
		case models.KindKill:
			return inPack(p.Source)
		}
		return false
	})
}

func (e *Engine) resurrection(ev models.Event, notify Notifier) error {
	actor, ok := e.state.Cast.Seat(ev.Source)
	if !ok {
		return nil
	}
	if err := e.state.Rescue(ev.Source, ev.Target); err != nil {
		e.log.Warn().Err(err).Int("seat", ev.Source).Int("target", ev.Target).Msg("rescue rejected")
		if actor.Human() {
			return notify(e.notice(models.NoticeDisplay, "Your potion had no effect."))
		}
		return nil
	}

	e.publish(ev, withReason(fmt.Sprintf("%s saved %s.", models.SeatName(ev.Source), models.SeatName(ev.Target)), ev.Reason))
	e.remember(ev.Source, ev, withReason(fmt.Sprintf("I saved %s.", models.SeatName(ev.Target)), ev.Reason))
	if actor.Human() {
		return notify(e.notice(models.NoticeDisplay, fmt.Sprintf("You saved %s.", models.SeatName(ev.Target))))
	}
	return nil
}

func (e *Engine) check(ev models.Event, notify Notifier) error {
	actor, ok := e.state.Cast.Seat(ev.Source)
	if !ok {
		return nil
	}
	target, ok := e.state.Cast.Seat(ev.Target)
	if !ok {
		return nil
	}

	name := models.SeatName(target.ID)
	e.publish(ev, withReason(fmt.Sprintf("%s checked %s: %s is a %s.", models.SeatName(actor.ID), name, name, target.Role), ev.Reason))
	e.remember(actor.ID, ev, withReason(fmt.Sprintf("I checked %s: they are a %s.", name, target.Role), ev.Reason))
	if actor.Human() {
		return notify(e.notice(models.NoticeDisplay, fmt.Sprintf("%s is a %s.", name, target.Role)))
	}
	return nil
}

func (e *Engine) allowSpeak(ctx context.Context, ev models.Event, notify Notifier) error {
	seat, ok := e.state.Cast.Seat(ev.Target)
	if !ok || !seat.Alive {
		return nil
	}
	said := models.Event{Kind: models.KindAllowSpeak, Source: seat.ID}

	if e.humanSeat(seat) {
		action, ok, err := e.choose(ctx, ev, seat, e.speakOptions(seat), notify, nil)
		if err != nil || !ok {
			return err
		}
		speech := strings.TrimSpace(action.Content)
		e.publish(said, fmt.Sprintf("%s said: %s", models.SeatName(seat.ID), speech))
		e.remember(seat.ID, said, "I said: "+speech)
		return nil
	}

	a, err := e.agent(seat.Role)
	if err != nil {
		return e.reject(ev, seat, err, notify)
	}
	mid := newMessageID()
	var b strings.Builder
	for frag := range a.Speak(ctx, e.turn(seat, "")) {
		if frag.End {
			break
		}
		if frag.Text == "" {
			continue
		}
		b.WriteString(frag.Text)
		n := e.notice(models.NoticeSpeak, frag.Text)
		n.Seat = seat.ID
		n.MessageID = mid
		if err := notify(n); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		e.state.Stack.Push(ev)
		return err
	}

	speech := strings.TrimSpace(b.String())
	if speech == "" {
		speech = "(silence)"
	}
	e.publish(said, fmt.Sprintf("%s said: %s", models.SeatName(seat.ID), speech))
	e.remember(seat.ID, said, "I said: "+speech)
	return nil
}

func (e *Engine) allowVote(ctx context.Context, ev models.Event, notify Notifier) error {
	seat, ok := e.state.Cast.Seat(ev.Target)
	if !ok || !seat.Alive {
		return nil
	}
	action, ok, err := e.choose(ctx, ev, seat, e.voteOptions(seat), notify, func(a Agent) (models.Action, error) {
		return a.Vote(ctx, e.turn(seat, ""))
	})
	if err != nil || !ok {
		return err
	}
	return e.commit(seat, action)
}

func (e *Engine) vote(ev models.Event, notify Notifier) error {
	if err := e.state.CastVote(ev.Source, ev.Target); err != nil {
		e.log.Warn().Err(err).Int("seat", ev.Source).Int("target", ev.Target).Msg("vote rejected")
		return nil
	}
	line := fmt.Sprintf("%s voted for %s.", models.SeatName(ev.Source), models.SeatName(ev.Target))
	e.publish(ev, withReason(line, ev.Reason))
	e.remember(ev.Source, ev, withReason(fmt.Sprintf("I voted for %s.", models.SeatName(ev.Target)), ev.Reason))
	if ev.Source == models.HumanSeat {
		line = fmt.Sprintf("You voted for %s.", models.SeatName(ev.Target))
	}
	return notify(e.notice(models.NoticeDisplay, line))
}

func (e *Engine) dayChange(notify Notifier) error {
	e.publish(models.Event{Kind: models.KindDayChange}, fmt.Sprintf("Day %d is over.", e.state.Day))
	e.state.NextDay()
	clear(e.attempts)
	clear(e.failures)
	return notify(e.notice(models.NoticeDisplay, fmt.Sprintf("Day %d begins.", e.state.Day)))
}

// commit turns a validated decision into the event that applies it. The new
// event goes on top of the stack and runs next.
func (e *Engine) commit(seat *models.Seat, action models.Action) error {
	day, phase := e.state.Day, e.state.Phase
	switch action.Action {
	case models.ActConversation:
		e.state.Stack.Push(models.Conversation(day, phase, seat.ID, action.Target, action.Content, e.state.Conversations))
	case models.ActKill:
		e.state.Stack.Push(models.Kill(day, phase, seat.ID, action.Target, action.Reason))
	case models.ActCheck:
		e.state.Stack.Push(models.Check(day, phase, seat.ID, action.Target, action.Reason))
	case models.ActResurrection:
		e.state.Stack.Push(models.Resurrection(day, phase, seat.ID, action.Target, action.Reason))
	case models.ActVote:
		e.state.Stack.Push(models.Vote(day, phase, seat.ID, action.Target, action.Reason))
	case models.ActNone:
		idle := models.Event{Kind: models.KindAllowAct, Source: seat.ID}
		e.publish(idle, withReason(fmt.Sprintf("%s chose to do nothing.", models.SeatName(seat.ID)), action.Reason))
		e.remember(seat.ID, idle, withReason("I chose to do nothing.", action.Reason))
	default:
		return fmt.Errorf("%w: cannot commit %q", models.ErrMalformed, action.Action)
	}
	return nil
}

// choose obtains a decision for seat and validates it against options. ok
// is false when the decision was rejected; the event is then re-queued,
// forfeited or treated as a no-op.
func (e *Engine) choose(ctx context.Context, ev models.Event, seat *models.Seat, options models.Notice, notify Notifier, ask func(Agent) (models.Action, error)) (models.Action, bool, error) {
	var (
		action models.Action
		err    error
	)
	if e.humanSeat(seat) {
		if err := notify(options); err != nil {
			e.state.Stack.Push(ev)
			return action, false, err
		}
		action, err = e.human.Await(ctx, options)
		if err != nil {
			e.state.Stack.Push(ev)
			return action, false, fmt.Errorf("await seat %d: %w", seat.ID, err)
		}
	} else {
		var a Agent
		if a, err = e.agent(seat.Role); err == nil {
			action, err = ask(a)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.state.Stack.Push(ev)
			return action, false, ctxErr
		}
	}

	if err == nil {
		action = options.Fill(action)
		if action.Action == models.ActConversation && len(options.Targets[models.ActConversation]) == 0 {
			// Talking past the nightly cap still leaves the kill open.
			err = fmt.Errorf("%w: conversation limit reached", models.ErrMalformed)
		} else {
			err = options.Allows(action)
		}
	}
	if err != nil {
		return action, false, e.reject(ev, seat, err, notify)
	}
	return action, true, nil
}

// reject handles a decision that failed validation. Unavailable abilities
// are a no-op; anything else re-queues the event until the retry limit is
// reached and the turn is forfeited.
func (e *Engine) reject(ev models.Event, seat *models.Seat, cause error, notify Notifier) error {
	if errors.Is(cause, models.ErrAbilityMisuse) {
		e.log.Warn().Err(cause).Str("kind", string(ev.Kind)).Int("seat", seat.ID).Msg("decision ignored")
		return notify(e.notice(models.NoticeDisplay, fmt.Sprintf("%s's action had no effect.", models.SeatName(seat.ID))))
	}
	if e.failures[ev] < e.limits.MaxRetries {
		e.failures[ev]++
		e.log.Warn().Err(cause).Str("kind", string(ev.Kind)).Int("seat", seat.ID).Int("retry", e.failures[ev]).Msg("decision rejected, retrying")
		e.state.Stack.Push(ev)
		return nil
	}

	e.log.Warn().Err(cause).Str("kind", string(ev.Kind)).Int("seat", seat.ID).Msg("retries exhausted, turn forfeited")
	forfeit := models.Event{Kind: ev.Kind, Source: seat.ID}
	e.publish(forfeit, fmt.Sprintf("%s forfeited the turn.", models.SeatName(seat.ID)))
	e.remember(seat.ID, forfeit, "I forfeited my turn.")
	return notify(e.notice(models.NoticeDisplay, fmt.Sprintf("%s forfeited the turn.", models.SeatName(seat.ID))))
}

func (e *Engine) humanSeat(seat *models.Seat) bool {
	return seat.Human() && e.human != nil
}

func (e *Engine) publish(ev models.Event, content string) {
	e.ledger.AppendShared(e.entry(ev, content))
}

func (e *Engine) remember(seat int, ev models.Event, content string) {
	e.ledger.AppendSeat(seat, e.entry(ev, content))
}

func (e *Engine) entry(ev models.Event, content string) models.Entry {
	return models.Entry{
		Day:     e.state.Day,
		Phase:   e.state.Phase,
		Kind:    ev.Kind,
		Source:  ev.Source,
		Target:  ev.Target,
		Content: content,
	}
}

func withReason(line, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return line
	}
	return line + " Reason: " + reason
}

func stirring(role models.Role) string {
	switch role {
	case models.Werewolf:
		return "The werewolves are on the prowl."
	case models.Seer:
		return "The seer gazes into the crystal ball."
	case models.Witch:
		return "The witch stirs the cauldron."
	}
	return "Someone stirs in the dark."
}
