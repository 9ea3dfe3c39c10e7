package tui

import (
	"errors"
	"testing"

	"github.com/tatianab/werewolf/internal/models"
)

func TestParseCommand(t *testing.T) {
	act := &models.Notice{Type: models.NoticeAct}
	speak := &models.Notice{Type: models.NoticeUserSpeak}

	tests := []struct {
		name    string
		input   string
		prompt  *models.Notice
		want    models.Response
		wantErr bool
	}{
		{"kill", "kill 3", act, models.Response{EType: "KILL", Target: 3}, false},
		{"poison with reason", "poison p2 acted shifty", act, models.Response{EType: "KILL", Target: 2, Reason: "acted shifty"}, false},
		{"save", "SAVE 4", act, models.Response{EType: "RESURRECTION", Target: 4}, false},
		{"check", "check 1", act, models.Response{EType: "CHECK", Target: 1}, false},
		{"vote", "vote 5", &models.Notice{Type: models.NoticeVoting}, models.Response{EType: "VOTE", Target: 5}, false},
		{"talk", "talk take Player 3", act, models.Response{EType: "CONVERSATION", Content: "take Player 3"}, false},
		{"none", "none", act, models.Response{EType: "NONE"}, false},
		{"speech", "kill 3 is what I would do", speak, models.Response{EType: "SPEAK", Content: "kill 3 is what I would do"}, false},
		{"empty speech", "  ", speak, models.Response{}, true},
		{"bad number", "kill three", act, models.Response{}, true},
		{"unknown verb", "dance 3", act, models.Response{}, true},
		{"empty talk", "talk", act, models.Response{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.input, tt.prompt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCommand(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseCommand(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCommandWithoutPrompt(t *testing.T) {
	if _, err := parseCommand("kill 3", nil); !errors.Is(err, errNoPrompt) {
		t.Errorf("error = %v, want errNoPrompt", err)
	}
}

func TestUsage(t *testing.T) {
	n := &models.Notice{
		Actions: []models.ActionKind{models.ActResurrection, models.ActKill, models.ActNone},
		Targets: map[models.ActionKind][]int{
			models.ActResurrection: {3},
			models.ActKill:         {1, 2},
		},
	}
	if got, want := usage(n), "save N [3] | kill N [1 2] | none"; got != want {
		t.Errorf("usage() = %q, want %q", got, want)
	}
}
