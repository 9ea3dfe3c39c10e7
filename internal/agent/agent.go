package agent

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"iter"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	"github.com/tatianab/werewolf/internal/engine"
	"github.com/tatianab/werewolf/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/rules.txt
var rulesPrompt string

//go:embed prompts/night_werewolf.txt
var nightWerewolfPrompt string

//go:embed prompts/night_seer.txt
var nightSeerPrompt string

//go:embed prompts/night_witch.txt
var nightWitchPrompt string

//go:embed prompts/discussion.txt
var discussionPrompt string

//go:embed prompts/vote.txt
var votePrompt string

var (
	nightWerewolfTmpl = template.Must(template.New("night_werewolf").Parse(nightWerewolfPrompt))
	nightSeerTmpl     = template.Must(template.New("night_seer").Parse(nightSeerPrompt))
	nightWitchTmpl    = template.Must(template.New("night_witch").Parse(nightWitchPrompt))
	discussionTmpl    = template.Must(template.New("discussion").Parse(discussionPrompt))
	voteTmpl          = template.Must(template.New("vote").Parse(votePrompt))
)

// Roster builds one agent per role, all backed by gen.
func Roster(gen Generator, log zerolog.Logger) map[models.Role]engine.Agent {
	return map[models.Role]engine.Agent{
		models.Werewolf: NewWerewolf(gen, log),
		models.Seer:     NewSeer(gen, log),
		models.Witch:    NewWitch(gen, log),
		models.Villager: NewVillager(gen, log),
	}
}

type promptData struct {
	Rules            string
	Seat             int
	Role             models.Role
	Day              int
	Alive            []int
	Teammate         int
	Message          string
	CanConverse      bool
	Conversations    int
	MaxConversations int
	JustKilled       []int
	Heal             int
	Poison           int
	Briefing         string
	Targets          []int
}

func newPromptData(turn models.Turn) promptData {
	return promptData{
		Rules:            rulesPrompt,
		Seat:             turn.Seat.ID,
		Role:             turn.Seat.Role,
		Day:              turn.Day,
		Alive:            turn.Alive,
		Teammate:         turn.Teammate,
		Message:          turn.Message,
		CanConverse:      turn.CanConverse(),
		Conversations:    turn.Conversations,
		MaxConversations: turn.MaxConversations,
		JustKilled:       turn.JustKilled,
		Heal:             turn.Seat.HealCharge,
		Poison:           turn.Seat.PoisonCharge,
		Briefing:         turn.Briefing,
		Targets:          turn.Others(),
	}
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// base carries what every role shares: speaking and voting.
type base struct {
	gen Generator
	log zerolog.Logger
}

func (b base) decide(ctx context.Context, tmpl *template.Template, data promptData) (models.Action, error) {
	prompt, err := render(tmpl, data)
	if err != nil {
		return models.Action{}, err
	}
	out, err := b.gen.Generate(ctx, prompt)
	if err != nil {
		return models.Action{}, fmt.Errorf("generate %s: %w", tmpl.Name(), err)
	}
	action, err := ParseAction(out)
	if err != nil {
		b.log.Debug().Err(err).Int("seat", data.Seat).Str("prompt", tmpl.Name()).Str("output", out).Msg("unparsable decision")
		return models.Action{}, err
	}
	return action, nil
}

func (b base) Speak(ctx context.Context, turn models.Turn) iter.Seq[models.Fragment] {
	return func(yield func(models.Fragment) bool) {
		prompt, err := render(discussionTmpl, newPromptData(turn))
		if err != nil {
			b.log.Error().Err(err).Msg("render discussion prompt")
			yield(models.Fragment{End: true})
			return
		}
		for text, err := range b.gen.Stream(ctx, prompt) {
			if err != nil {
				b.log.Warn().Err(err).Int("seat", turn.Seat.ID).Msg("speech stream ended early")
				break
			}
			if text == "" {
				continue
			}
			if !yield(models.Fragment{Text: text}) {
				return
			}
		}
		yield(models.Fragment{End: true})
	}
}

func (b base) Vote(ctx context.Context, turn models.Turn) (models.Action, error) {
	action, err := b.decide(ctx, voteTmpl, newPromptData(turn))
	if err != nil {
		return action, err
	}
	if action.Action != models.ActVote {
		return models.Action{}, fmt.Errorf("%w: expected a vote, got %q", models.ErrMalformed, action.Action)
	}
	return action, nil
}

type Werewolf struct{ base }

func NewWerewolf(gen Generator, log zerolog.Logger) *Werewolf {
	return &Werewolf{base{gen: gen, log: log.With().Str("role", string(models.Werewolf)).Logger()}}
}

// Act picks the pack's victim or talks to the teammate. Turn.Message holds
// the teammate's last message when answering one.
func (w *Werewolf) Act(ctx context.Context, turn models.Turn) (models.Action, error) {
	data := newPromptData(turn)
	var prey []int
	for _, id := range data.Targets {
		if id != turn.Teammate {
			prey = append(prey, id)
		}
	}
	data.Targets = prey
	return w.decide(ctx, nightWerewolfTmpl, data)
}

type Seer struct{ base }

func NewSeer(gen Generator, log zerolog.Logger) *Seer {
	return &Seer{base{gen: gen, log: log.With().Str("role", string(models.Seer)).Logger()}}
}

func (s *Seer) Act(ctx context.Context, turn models.Turn) (models.Action, error) {
	return s.decide(ctx, nightSeerTmpl, newPromptData(turn))
}

type Witch struct{ base }

func NewWitch(gen Generator, log zerolog.Logger) *Witch {
	return &Witch{base{gen: gen, log: log.With().Str("role", string(models.Witch)).Logger()}}
}

func (w *Witch) Act(ctx context.Context, turn models.Turn) (models.Action, error) {
	return w.decide(ctx, nightWitchTmpl, newPromptData(turn))
}

type Villager struct{ base }

func NewVillager(gen Generator, log zerolog.Logger) *Villager {
	return &Villager{base{gen: gen, log: log.With().Str("role", string(models.Villager)).Logger()}}
}

// Act always fails: villagers sleep through the night.
func (v *Villager) Act(context.Context, models.Turn) (models.Action, error) {
	return models.Action{}, fmt.Errorf("%w: villagers have no night action", models.ErrAbilityMisuse)
}

// ParseAction decodes a model reply into an Action. Replies may be YAML or
// JSON, optionally inside a code fence.
func ParseAction(raw string) (models.Action, error) {
	clean := stripFence(raw)

	var action models.Action
	if err := yaml.Unmarshal([]byte(clean), &action); err != nil {
		return models.Action{}, fmt.Errorf("%w: %v", models.ErrMalformed, err)
	}
	action.Action = models.ActionKind(strings.ToLower(strings.TrimSpace(string(action.Action))))

	switch action.Action {
	case models.ActKill, models.ActCheck, models.ActResurrection, models.ActVote:
		if action.Target == 0 {
			return models.Action{}, fmt.Errorf("%w: %s without a target", models.ErrMalformed, action.Action)
		}
	case models.ActConversation:
		if strings.TrimSpace(action.Content) == "" {
			return models.Action{}, fmt.Errorf("%w: empty conversation", models.ErrMalformed)
		}
	case models.ActNone:
	default:
		return models.Action{}, fmt.Errorf("%w: unknown action %q", models.ErrMalformed, action.Action)
	}
	return action, nil
}

func stripFence(raw string) string {
	clean := strings.TrimSpace(raw)
	for _, prefix := range []string{"```yaml", "```yml", "```json", "```"} {
		if strings.HasPrefix(clean, prefix) {
			clean = strings.TrimPrefix(clean, prefix)
			break
		}
	}
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
