package models

import "fmt"

// EventKind tags an Event.
type EventKind string

const (
	KindDisplay      EventKind = "DISPLAY"
	KindAllowAct     EventKind = "ALLOW_ACT"
	KindAllowSpeak   EventKind = "ALLOW_SPEAK"
	KindAllowVote    EventKind = "ALLOW_VOTE"
	KindConversation EventKind = "CONVERSATION"
	KindKill         EventKind = "KILL"
	KindResurrection EventKind = "RESURRECTION"
	KindCheck        EventKind = "CHECK"
	KindVote         EventKind = "VOTE"
	KindPhaseChange  EventKind = "PHASE_CHANGE"
	KindDayChange    EventKind = "DAY_CHANGE"
)

// Event is a scheduled or applied state transition. Events are values; once
// queued they are only removed or replaced, never edited.
type Event struct {
	Kind    EventKind `yaml:"kind" json:"kind"`
	Day     int       `yaml:"day" json:"day"`
	Phase   Phase     `yaml:"phase" json:"phase"`
	Source  int       `yaml:"source,omitempty" json:"source,omitempty"`
	Target  int       `yaml:"target,omitempty" json:"target,omitempty"`
	Content string    `yaml:"content,omitempty" json:"content,omitempty"`
	Reason  string    `yaml:"reason,omitempty" json:"reason,omitempty"`
	Count   int       `yaml:"count,omitempty" json:"count,omitempty"`
	Change  Phase     `yaml:"change,omitempty" json:"change,omitempty"`
}

func Display(day int, phase Phase, content string) Event {
	return Event{Kind: KindDisplay, Day: day, Phase: phase, Content: content}
}

func AllowAct(day, target int) Event {
	return Event{Kind: KindAllowAct, Day: day, Phase: PhaseNight, Target: target}
}

func AllowSpeak(day, target int) Event {
	return Event{Kind: KindAllowSpeak, Day: day, Phase: PhaseDiscussion, Target: target}
}

func AllowVote(day, target int) Event {
	return Event{Kind: KindAllowVote, Day: day, Phase: PhaseVoting, Target: target}
}

// PhaseChange moves the game from phase into change.
func PhaseChange(day int, phase, change Phase) Event {
	return Event{Kind: KindPhaseChange, Day: day, Phase: phase, Change: change}
}

func DayChange(day int) Event {
	return Event{Kind: KindDayChange, Day: day, Phase: PhaseCountVotes}
}

// Conversation is a private werewolf message; count is the number of
// messages already exchanged that night.
func Conversation(day int, phase Phase, source, target int, content string, count int) Event {
	return Event{Kind: KindConversation, Day: day, Phase: phase, Source: source, Target: target, Content: content, Count: count}
}

func Kill(day int, phase Phase, source, target int, reason string) Event {
	return Event{Kind: KindKill, Day: day, Phase: phase, Source: source, Target: target, Reason: reason}
}

func Resurrection(day int, phase Phase, source, target int, reason string) Event {
	return Event{Kind: KindResurrection, Day: day, Phase: phase, Source: source, Target: target, Reason: reason}
}

func Check(day int, phase Phase, source, target int, reason string) Event {
	return Event{Kind: KindCheck, Day: day, Phase: phase, Source: source, Target: target, Reason: reason}
}

func Vote(day int, phase Phase, source, target int, reason string) Event {
	return Event{Kind: KindVote, Day: day, Phase: phase, Source: source, Target: target, Reason: reason}
}

// String narrates the event in the third person.
func (e Event) String() string {
	switch e.Kind {
	case KindDisplay:
		return e.Content
	case KindAllowAct:
		return fmt.Sprintf("%s begins their night action.", SeatName(e.Target))
	case KindAllowSpeak:
		return fmt.Sprintf("%s may speak.", SeatName(e.Target))
	case KindAllowVote:
		return fmt.Sprintf("%s may vote.", SeatName(e.Target))
	case KindConversation:
		return fmt.Sprintf("%s said to %s: %s", SeatName(e.Source), SeatName(e.Target), e.Content)
	case KindKill:
		return fmt.Sprintf("%s killed %s.", SeatName(e.Source), SeatName(e.Target))
	case KindResurrection:
		return fmt.Sprintf("%s saved %s.", SeatName(e.Source), SeatName(e.Target))
	case KindCheck:
		return fmt.Sprintf("%s checked the identity of %s.", SeatName(e.Source), SeatName(e.Target))
	case KindVote:
		return fmt.Sprintf("%s voted for %s.", SeatName(e.Source), SeatName(e.Target))
	case KindPhaseChange:
		return fmt.Sprintf("The game moves to the %s phase.", e.Change)
	case KindDayChange:
		return fmt.Sprintf("Day %d is over.", e.Day)
	default:
		return string(e.Kind)
	}
}
