package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tatianab/werewolf/internal/agent"
	"github.com/tatianab/werewolf/internal/config"
	"github.com/tatianab/werewolf/internal/engine"
	"github.com/tatianab/werewolf/internal/logging"
	"github.com/tatianab/werewolf/internal/models"
	"github.com/tatianab/werewolf/internal/session"
)

// simulate_game plays one full game with a Gemini player in the human seat,
// answering every prompt through the same path a person would.
func main() {
	configPath := flag.String("config", "werewolf.toml", "path to the TOML config file")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, true)

	gen, err := agent.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Temperature)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer gen.Close()

	roster := agent.Roster(gen, logger)
	sess := session.New("simulation", session.NewFactory(roster, cfg.Limits(), logger), logger)
	player := roster[sess.HumanRole()]
	fmt.Printf("--- The simulated player is Player %d, the %s ---\n\n", models.HumanSeat, sess.HumanRole())

	speaking := ""
	err = sess.Stream(ctx, func(n models.Notice) error {
		if n.Type == models.NoticeSpeak {
			if n.MessageID != speaking {
				speaking = n.MessageID
				fmt.Printf("\n%s: ", models.SeatName(n.Seat))
			}
			fmt.Print(n.Content)
			return nil
		}
		if speaking != "" {
			speaking = ""
			fmt.Println()
		}
		fmt.Printf("[day %d, %s] %s\n", n.Day, n.Phase, n.Content)

		switch n.Type {
		case models.NoticeAct, models.NoticeConversation, models.NoticeUserSpeak, models.NoticeVoting:
			go answer(ctx, sess, player, n)
		case models.NoticeFinish:
			fmt.Printf("\nGame Ended: %s\n", n.Content)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Game stopped: %v", err)
	}

	review := sess.Review()
	fmt.Println("\n--- Roles ---")
	for _, seat := range review.Seats {
		fmt.Printf("%s: %s (alive: %v)\n", seat.Name, seat.Role, seat.Alive)
	}
}

// promptWait bounds how long answer waits for the seat's wait to start.
const promptWait = 30 * time.Second

// answer waits for the seat to start waiting on prompt, then responds with the
// agent's decision, falling back to the first offered option.
func answer(ctx context.Context, sess *session.Session, player engine.Agent, prompt models.Notice) {
	wait, cancel := context.WithTimeout(ctx, promptWait)
	defer cancel()
	if _, err := sess.WaitPending(wait); err != nil {
		fmt.Printf("(gave up waiting for the prompt: %v)\n", err)
		return
	}

	review := sess.Review()
	var briefing strings.Builder
	for _, e := range review.Entries {
		if e.Phase == models.PhaseNight {
			continue
		}
		fmt.Fprintf(&briefing, "Day %d (%s): %s\n", e.Day, e.Phase, e.Content)
	}
	turn := models.Turn{
		Day:      prompt.Day,
		Phase:    prompt.Phase,
		Seat:     models.Seat{ID: models.HumanSeat, Role: sess.HumanRole(), Alive: true},
		Alive:    prompt.Alive,
		Briefing: briefing.String(),
	}
	if mates := prompt.Targets[models.ActConversation]; len(mates) == 1 {
		turn.Teammate = mates[0]
	}
	if prompt.Type == models.NoticeConversation {
		turn.Message = prompt.Content
	}

	var resp models.Response
	switch prompt.Type {
	case models.NoticeUserSpeak:
		var speech strings.Builder
		for frag := range player.Speak(ctx, turn) {
			speech.WriteString(frag.Text)
		}
		resp = models.Response{EType: "SPEAK", Content: strings.TrimSpace(speech.String())}
	case models.NoticeVoting:
		resp = decided(player.Vote(ctx, turn))
	default:
		resp = decided(player.Act(ctx, turn))
	}

	if err := sess.Respond(resp); err != nil {
		fmt.Printf("(player answer rejected: %v; falling back)\n", err)
		if err := sess.Respond(fallback(prompt)); err != nil {
			fmt.Printf("(fallback rejected: %v)\n", err)
		}
	}
}

func decided(a models.Action, err error) models.Response {
	if err != nil {
		return models.Response{}
	}
	return models.Response{EType: strings.ToUpper(string(a.Action)), Target: a.Target, Reason: a.Reason, Content: a.Content}
}

func fallback(prompt models.Notice) models.Response {
	if len(prompt.Actions) == 0 {
		return models.Response{EType: "SPEAK", Content: "I have nothing to add."}
	}
	kind := prompt.Actions[len(prompt.Actions)-1]
	resp := models.Response{EType: strings.ToUpper(string(kind))}
	if targets := prompt.Targets[kind]; len(targets) > 0 {
		resp.Target = targets[0]
	}
	if kind == models.ActSpeak || kind == models.ActConversation {
		resp.Content = "I have nothing to add."
	}
	return resp
}
