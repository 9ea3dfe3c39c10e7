package models

import (
	"fmt"
	"slices"
	"strings"
)

// ActionKind is the verb of a decision.
type ActionKind string

const (
	ActKill         ActionKind = "kill"
	ActConversation ActionKind = "conversation"
	ActCheck        ActionKind = "check"
	ActResurrection ActionKind = "resurrection"
	ActNone         ActionKind = "none"
	ActVote         ActionKind = "vote"
	ActSpeak        ActionKind = "speak"
)

// Action is a decision produced by an agent or by the human seat.
type Action struct {
	Action  ActionKind `yaml:"action" json:"action"`
	Target  int        `yaml:"target" json:"target"`
	Reason  string     `yaml:"reason,omitempty" json:"reason,omitempty"`
	Content string     `yaml:"content,omitempty" json:"content,omitempty"`
}

// Response is an action submitted for the human seat, tagged with the event
// kind it produces.
type Response struct {
	EType   string `json:"etype"`
	Target  int    `json:"target"`
	Reason  string `json:"reason,omitempty"`
	Content string `json:"content,omitempty"`
}

var responseKinds = map[string]ActionKind{
	"CONVERSATION": ActConversation,
	"KILL":         ActKill,
	"RESURRECTION": ActResurrection,
	"CHECK":        ActCheck,
	"VOTE":         ActVote,
	"NONE":         ActNone,
	"SPEAK":        ActSpeak,
}

// Action converts the response into an Action.
func (r Response) Action() (Action, error) {
	kind, ok := responseKinds[strings.ToUpper(strings.TrimSpace(r.EType))]
	if !ok {
		return Action{}, fmt.Errorf("%w: unknown etype %q", ErrMalformed, r.EType)
	}
	return Action{Action: kind, Target: r.Target, Reason: r.Reason, Content: r.Content}, nil
}

// Turn is everything a decision maker is told when asked to act.
type Turn struct {
	Day   int   `yaml:"day"`
	Phase Phase `yaml:"phase"`
	Seat  Seat  `yaml:"seat"`
	Alive []int `yaml:"alive"`

	// Teammate is the other living werewolf, 0 if none.
	Teammate         int    `yaml:"teammate,omitempty"`
	JustKilled       []int  `yaml:"just_killed,omitempty"`
	Conversations    int    `yaml:"conversations,omitempty"`
	MaxConversations int    `yaml:"max_conversations,omitempty"`
	Message          string `yaml:"message,omitempty"`
	Briefing         string `yaml:"briefing,omitempty"`
}

// CanConverse reports whether a werewolf may still message its teammate.
func (t Turn) CanConverse() bool {
	return t.Teammate != 0 && t.Conversations < t.MaxConversations
}

// Others lists living seats other than the acting one.
func (t Turn) Others() []int {
	out := make([]int, 0, len(t.Alive))
	for _, id := range t.Alive {
		if id != t.Seat.ID {
			out = append(out, id)
		}
	}
	return out
}

// Fragment is one piece of streamed speech. The last fragment of a speech
// has End set and no text.
type Fragment struct {
	Text string
	End  bool
}

// NoticeType tags an outbound notification.
type NoticeType string

const (
	NoticeDisplay      NoticeType = "display"
	NoticeAct          NoticeType = "act"
	NoticeConversation NoticeType = "conversation"
	NoticeSpeak        NoticeType = "speak"
	NoticeUserSpeak    NoticeType = "user_speak"
	NoticeVoting       NoticeType = "voting"
	NoticeFinish       NoticeType = "finish"
)

// Notice is the externally observable result of processing one event:
// narration, a speech fragment, a prompt for the human seat or the final
// result.
type Notice struct {
	Type      NoticeType           `json:"type"`
	Content   string               `json:"content,omitempty"`
	Day       int                  `json:"day"`
	Phase     Phase                `json:"phase"`
	Alive     []int                `json:"alive,omitempty"`
	Seat      int                  `json:"id,omitempty"`
	Source    int                  `json:"source,omitempty"`
	MessageID string               `json:"mid,omitempty"`
	Actions   []ActionKind         `json:"action,omitempty"`
	Targets   map[ActionKind][]int `json:"targets,omitempty"`
	// Spent lists abilities the seat's role has but cannot use right now.
	Spent     []ActionKind         `json:"spent,omitempty"`
	Winner    Winner               `json:"winner,omitempty"`
	GameOver  bool                 `json:"game_over,omitempty"`
}

// Prompt reports whether the notice asks the human seat for input.
func (n Notice) Prompt() bool {
	switch n.Type {
	case NoticeAct, NoticeConversation, NoticeUserSpeak, NoticeVoting:
		return true
	}
	return false
}

// Fill addresses a conversation to the only teammate on offer.
func (n Notice) Fill(a Action) Action {
	if mates := n.Targets[ActConversation]; a.Action == ActConversation && len(mates) == 1 {
		a.Target = mates[0]
	}
	return a
}

// Allows validates a against the options offered by a prompt notice.
func (n Notice) Allows(a Action) error {
	if slices.Contains(n.Spent, a.Action) {
		return fmt.Errorf("%w: %q is spent", ErrAbilityMisuse, a.Action)
	}
	if !slices.Contains(n.Actions, a.Action) {
		return fmt.Errorf("%w: action %q not offered", ErrMalformed, a.Action)
	}
	switch a.Action {
	case ActNone:
		return nil
	case ActSpeak:
		if strings.TrimSpace(a.Content) == "" {
			return fmt.Errorf("%w: empty speech", ErrMalformed)
		}
		return nil
	case ActConversation:
		if strings.TrimSpace(a.Content) == "" {
			return fmt.Errorf("%w: empty message", ErrMalformed)
		}
	}
	if !slices.Contains(n.Targets[a.Action], a.Target) {
		return fmt.Errorf("%w: %s cannot target %d", ErrInvalidTarget, a.Action, a.Target)
	}
	return nil
}
