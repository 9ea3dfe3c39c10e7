package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/tatianab/werewolf/internal/engine"
	"github.com/tatianab/werewolf/internal/models"
	"github.com/tatianab/werewolf/internal/session"
)

func testModel(t *testing.T) model {
	t.Helper()
	models.SaveDir = t.TempDir()
	sess := session.New("tui-test", func(h engine.Human) *engine.Engine {
		return engine.New(engine.Options{
			Cast:   models.CastFromRoles(models.Deck),
			Human:  h,
			Logger: zerolog.Nop(),
		})
	}, zerolog.Nop())
	m := newModel(sess, make(chan models.Notice))
	m.width, m.height = 120, 40
	return m
}

func update(t *testing.T, m model, msg any) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func TestSpeechFragmentsJoin(t *testing.T) {
	m := testModel(t)
	for _, text := range []string{"I suspect ", "Player 4."} {
		m = update(t, m, noticeMsg{models.Notice{Type: models.NoticeSpeak, Seat: 2, MessageID: "m1", Content: text}})
	}
	m = update(t, m, noticeMsg{models.Notice{Type: models.NoticeSpeak, Seat: 3, MessageID: "m2", Content: "Not me."}})

	if strings.Count(m.gameLog, "Player 2:") != 1 {
		t.Errorf("speaker label repeated: %q", m.gameLog)
	}
	if !strings.Contains(m.gameLog, "I suspect Player 4.") {
		t.Errorf("fragments not joined: %q", m.gameLog)
	}
	if !strings.Contains(m.gameLog, "Player 3:") {
		t.Errorf("second speaker missing: %q", m.gameLog)
	}
}

func TestPromptAndResponse(t *testing.T) {
	m := testModel(t)
	prompt := models.Notice{
		Type:    models.NoticeVoting,
		Content: "Cast your vote.",
		Day:     2,
		Phase:   models.PhaseVoting,
		Alive:   []int{1, 2, 4, 6},
		Actions: []models.ActionKind{models.ActVote},
		Targets: map[models.ActionKind][]int{models.ActVote: {1, 2, 4}},
	}
	m = update(t, m, noticeMsg{prompt})

	if m.prompt == nil || m.day != 2 || m.phase != models.PhaseVoting || len(m.alive) != 4 {
		t.Fatalf("model after prompt: prompt=%v day=%d phase=%s alive=%v", m.prompt, m.day, m.phase, m.alive)
	}
	if m.textInput.Placeholder != "vote N [1 2 4]" {
		t.Errorf("placeholder = %q", m.textInput.Placeholder)
	}

	m = update(t, m, respondedMsg{err: session.ErrNoPendingInput})
	if m.prompt == nil || m.feedback == "" {
		t.Error("failed response cleared the prompt")
	}
	m = update(t, m, respondedMsg{})
	if m.prompt != nil || m.feedback != "" {
		t.Errorf("prompt=%v feedback=%q after accepted response", m.prompt, m.feedback)
	}
}

func TestFinishSavesReview(t *testing.T) {
	m := testModel(t)
	m = update(t, m, noticeMsg{models.Notice{Type: models.NoticeFinish, Content: "The villagers win!", Winner: models.VillagersWin, GameOver: true}})

	if m.state != stateFinished || m.winner != models.VillagersWin {
		t.Fatalf("state=%v winner=%q", m.state, m.winner)
	}
	if m.saved != "tui-test" {
		t.Fatalf("saved = %q, feedback %q", m.saved, m.feedback)
	}
	if _, err := models.LoadReview("tui-test"); err != nil {
		t.Errorf("LoadReview() error: %v", err)
	}
	if !strings.Contains(m.renderState(), "The villagers win") {
		t.Error("side panel misses the result")
	}
}

func TestSavedCommand(t *testing.T) {
	m := testModel(t)
	m.saveReview()
	m.textInput.SetValue("/saved")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.gameLog, "tui-test") {
		t.Errorf("saved list missing the game: %q", m.gameLog)
	}
}
