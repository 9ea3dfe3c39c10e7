package game

import (
	"slices"

	"github.com/tatianab/werewolf/internal/models"
)

// Stack is the LIFO schedule of pending events. The next event processed is
// always the most recently pushed one.
type Stack struct {
	events []models.Event
}

// Push schedules e ahead of everything already queued.
func (s *Stack) Push(e models.Event) {
	s.events = append(s.events, e)
}

// PushSequence schedules seq so that it executes in the given order, with
// seq[0] on top.
func (s *Stack) PushSequence(seq ...models.Event) {
	for i := len(seq) - 1; i >= 0; i-- {
		s.events = append(s.events, seq[i])
	}
}

// Replace drops every pending event and schedules seq in order.
func (s *Stack) Replace(seq ...models.Event) {
	s.events = s.events[:0]
	s.PushSequence(seq...)
}

func (s *Stack) Pop() (models.Event, bool) {
	if len(s.events) == 0 {
		return models.Event{}, false
	}
	e := s.events[len(s.events)-1]
	s.events = s.events[:len(s.events)-1]
	return e, true
}

func (s *Stack) Peek() (models.Event, bool) {
	if len(s.events) == 0 {
		return models.Event{}, false
	}
	return s.events[len(s.events)-1], true
}

func (s *Stack) Len() int {
	return len(s.events)
}

// Remove deletes every pending event matching match and returns how many
// were removed.
func (s *Stack) Remove(match func(models.Event) bool) int {
	before := len(s.events)
	s.events = slices.DeleteFunc(s.events, match)
	return before - len(s.events)
}

// Pending lists queued events in the order they will be processed.
func (s *Stack) Pending() []models.Event {
	out := slices.Clone(s.events)
	slices.Reverse(out)
	return out
}
