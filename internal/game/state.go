package game

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tatianab/werewolf/internal/models"
)

// State is the aggregate of one game. It is not safe for concurrent use; the
// orchestrator that owns it is strictly sequential.
type State struct {
	Cast  *models.Cast
	Day   int
	Phase models.Phase
	Stack Stack

	// ActOrder lists night actors; SpeakOrder lists the day's speakers and
	// voters.
	ActOrder   []int
	SpeakOrder []int

	// JustKilled holds the night's pending deaths.
	JustKilled    []int
	Votes         [models.SeatCount]int
	Conversations int

	// Out is the seat eliminated by the latest vote, 0 if none.
	Out int

	gameOver bool
	winner   models.Winner
}

// New starts day 1 at night with the night sequence scheduled.
func New(cast *models.Cast) *State {
	s := &State{
		Cast:  cast,
		Day:   1,
		Phase: models.PhaseNight,
	}
	s.ActOrder = cast.ActOrder()
	s.SpeakOrder = cast.Alive()
	s.InstallNight()
	return s
}

// NightSequence is the forward order of a night: narration, one action
// grant per night actor, then dawn.
func (s *State) NightSequence() []models.Event {
	seq := make([]models.Event, 0, len(s.ActOrder)+2)
	seq = append(seq, models.Display(s.Day, models.PhaseNight,
		fmt.Sprintf("Night %d falls. Alive: %s", s.Day, names(s.Cast.Alive()))))
	for _, id := range s.ActOrder {
		seq = append(seq, models.AllowAct(s.Day, id))
	}
	return append(seq, models.PhaseChange(s.Day, models.PhaseNight, models.PhaseDay))
}

// DaySequence is the forward order of a day once the night is resolved.
func (s *State) DaySequence() []models.Event {
	seq := make([]models.Event, 0, 2*len(s.SpeakOrder)+6)
	seq = append(seq,
		models.Display(s.Day, models.PhaseDay, s.DawnReport()),
		models.PhaseChange(s.Day, models.PhaseDay, models.PhaseDiscussion),
		models.Display(s.Day, models.PhaseDiscussion, "The discussion begins."),
	)
	for _, id := range s.SpeakOrder {
		seq = append(seq, models.AllowSpeak(s.Day, id))
	}
	seq = append(seq,
		models.PhaseChange(s.Day, models.PhaseDiscussion, models.PhaseVoting),
		models.Display(s.Day, models.PhaseVoting, "The vote begins."),
	)
	for _, id := range s.SpeakOrder {
		seq = append(seq, models.AllowVote(s.Day, id))
	}
	return append(seq, models.PhaseChange(s.Day, models.PhaseVoting, models.PhaseCountVotes))
}

// CountSequence closes a day after the tally is resolved.
func (s *State) CountSequence() []models.Event {
	report := "Nobody received a vote; no one is out."
	if s.Out != 0 {
		report = fmt.Sprintf("%s is out.", models.SeatName(s.Out))
	}
	return []models.Event{
		models.Display(s.Day, models.PhaseCountVotes, report),
		models.DayChange(s.Day),
	}
}

func (s *State) InstallNight() {
	s.Stack.Replace(s.NightSequence()...)
}

func (s *State) InstallDay() {
	s.Stack.Replace(s.DaySequence()...)
}

func (s *State) InstallCount() {
	s.Stack.Replace(s.CountSequence()...)
}

// DawnReport narrates the night's casualties.
func (s *State) DawnReport() string {
	if len(s.JustKilled) == 0 {
		return fmt.Sprintf("Day %d dawns. No one died last night.", s.Day)
	}
	return fmt.Sprintf("Day %d dawns. Last night %s died.", s.Day, names(s.JustKilled))
}

// ChangePhase is the only way the phase moves.
func (s *State) ChangePhase(p models.Phase) {
	s.Phase = p
}

// MarkKilled adds target to the night's pending deaths on behalf of source.
// A witch needs her poison, which is spent only when the target is newly
// marked.
func (s *State) MarkKilled(source, target int) error {
	actor, ok := s.Cast.Seat(source)
	if !ok {
		return fmt.Errorf("%w: no seat %d", models.ErrInvalidTarget, source)
	}
	if !s.Cast.IsAlive(target) {
		return fmt.Errorf("%w: seat %d cannot be killed", models.ErrInvalidTarget, target)
	}
	switch actor.Role {
	case models.Werewolf:
	case models.Witch:
		if actor.PoisonCharge < 1 {
			return fmt.Errorf("%w: no poison left", models.ErrAbilityMisuse)
		}
	default:
		return fmt.Errorf("%w: %s cannot kill", models.ErrAbilityMisuse, actor.Role)
	}
	if slices.Contains(s.JustKilled, target) {
		return nil
	}
	s.JustKilled = append(s.JustKilled, target)
	if actor.Role == models.Witch {
		actor.PoisonCharge--
	}
	return nil
}

// Rescue removes target from the pending deaths using the witch's heal.
// Seats already finalized as dead cannot be rescued.
func (s *State) Rescue(source, target int) error {
	actor, ok := s.Cast.Seat(source)
	if !ok || actor.Role != models.Witch {
		return fmt.Errorf("%w: only the witch can heal", models.ErrAbilityMisuse)
	}
	if actor.HealCharge < 1 {
		return fmt.Errorf("%w: no heal left", models.ErrAbilityMisuse)
	}
	if !s.Cast.IsAlive(target) {
		return fmt.Errorf("%w: seat %d is already dead", models.ErrInvalidTarget, target)
	}
	i := slices.Index(s.JustKilled, target)
	if i < 0 {
		return fmt.Errorf("%w: seat %d is not dying", models.ErrAbilityMisuse, target)
	}
	s.JustKilled = slices.Delete(s.JustKilled, i, i+1)
	actor.HealCharge--
	return nil
}

// FinalizeKills applies the night's pending deaths and recomputes the day's
// speaking order.
func (s *State) FinalizeKills() {
	for _, id := range s.JustKilled {
		s.kill(id)
	}
	s.SpeakOrder = s.Cast.Alive()
}

func (s *State) kill(id int) {
	seat, ok := s.Cast.Seat(id)
	if !ok {
		return
	}
	seat.Alive = false
	s.ActOrder = slices.DeleteFunc(s.ActOrder, func(v int) bool { return v == id })
}

// CastVote adds one vote against target.
func (s *State) CastVote(source, target int) error {
	if !s.Cast.IsAlive(source) {
		return fmt.Errorf("%w: seat %d cannot vote", models.ErrInvalidTarget, source)
	}
	if !s.Cast.IsAlive(target) {
		return fmt.Errorf("%w: seat %d cannot be voted for", models.ErrInvalidTarget, target)
	}
	s.Votes[target-1]++
	return nil
}

// ResolveVotes picks the seat with the most votes, lowest id on ties, and
// marks it dead. It returns 0 when no votes were cast.
func (s *State) ResolveVotes() int {
	s.Out = Tally(s.Votes)
	if s.Out != 0 {
		s.kill(s.Out)
	}
	return s.Out
}

// Tally returns the 1-based seat holding the maximum count, the first one
// reaching it on ties, or 0 when every count is zero.
func Tally(votes [models.SeatCount]int) int {
	best, out := 0, 0
	for i, n := range votes {
		if n > best {
			best, out = n, i+1
		}
	}
	return out
}

// Evaluate checks the win condition. The first decisive result is final.
func (s *State) Evaluate() (models.Winner, bool) {
	if s.gameOver {
		return s.winner, true
	}
	werewolves, others := s.Cast.Count()
	switch {
	case werewolves == 0:
		s.winner = models.VillagersWin
	case werewolves >= others:
		s.winner = models.WerewolvesWin
	default:
		return models.NoWinner, false
	}
	s.gameOver = true
	return s.winner, true
}

// End forces the game over without a winner.
func (s *State) End() {
	s.gameOver = true
}

func (s *State) GameOver() bool {
	return s.gameOver
}

func (s *State) Winner() models.Winner {
	return s.winner
}

// NextDay closes the day and schedules the following night.
func (s *State) NextDay() {
	s.ChangePhase(models.PhaseDayChange)
	s.Day++
	s.JustKilled = nil
	s.Votes = [models.SeatCount]int{}
	s.Conversations = 0
	s.Out = 0
	s.ChangePhase(models.PhaseNight)
	s.InstallNight()
}

func names(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = models.SeatName(id)
	}
	return strings.Join(parts, " | ")
}
