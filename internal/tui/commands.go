package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tatianab/werewolf/internal/models"
)

var errNoPrompt = errors.New("nobody is asking you anything right now")

// verbs maps typed commands to response event types.
var verbs = map[string]string{
	"kill":   "KILL",
	"poison": "KILL",
	"save":   "RESURRECTION",
	"heal":   "RESURRECTION",
	"check":  "CHECK",
	"vote":   "VOTE",
}

// parseCommand turns typed input into a response to prompt. When the seat is
// asked to speak, any text is the speech.
func parseCommand(input string, prompt *models.Notice) (models.Response, error) {
	input = strings.TrimSpace(input)
	if prompt == nil {
		return models.Response{}, errNoPrompt
	}
	if prompt.Type == models.NoticeUserSpeak {
		if input == "" {
			return models.Response{}, errors.New("say something")
		}
		return models.Response{EType: "SPEAK", Content: input}, nil
	}

	verb, rest, _ := strings.Cut(input, " ")
	verb = strings.ToLower(verb)
	rest = strings.TrimSpace(rest)
	switch verb {
	case "none", "pass", "sleep":
		return models.Response{EType: "NONE"}, nil
	case "talk", "say":
		if rest == "" {
			return models.Response{}, errors.New("usage: talk <message>")
		}
		return models.Response{EType: "CONVERSATION", Content: rest}, nil
	}

	etype, ok := verbs[verb]
	if !ok {
		return models.Response{}, fmt.Errorf("unknown command %q", verb)
	}
	target, reason, _ := strings.Cut(rest, " ")
	id, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(target), "p"))
	if err != nil {
		return models.Response{}, fmt.Errorf("usage: %s <seat number>", verb)
	}
	return models.Response{EType: etype, Target: id, Reason: strings.TrimSpace(reason)}, nil
}

// usage describes the commands a prompt accepts.
func usage(prompt *models.Notice) string {
	if prompt == nil {
		return "Waiting for the game..."
	}
	var parts []string
	for _, a := range prompt.Actions {
		targets := prompt.Targets[a]
		switch a {
		case models.ActKill:
			parts = append(parts, fmt.Sprintf("kill N %v", targets))
		case models.ActResurrection:
			parts = append(parts, fmt.Sprintf("save N %v", targets))
		case models.ActCheck:
			parts = append(parts, fmt.Sprintf("check N %v", targets))
		case models.ActVote:
			parts = append(parts, fmt.Sprintf("vote N %v", targets))
		case models.ActConversation:
			parts = append(parts, "talk <message>")
		case models.ActNone:
			parts = append(parts, "none")
		case models.ActSpeak:
			parts = append(parts, "type your speech")
		}
	}
	return strings.Join(parts, " | ")
}
