package engine

import (
	"fmt"

	"github.com/tatianab/werewolf/internal/models"
)

// nightOptions lists what seat may do tonight. The same notice prompts the
// human seat and validates automated decisions.
func (e *Engine) nightOptions(seat *models.Seat) models.Notice {
	n := e.notice(models.NoticeAct, "Choose your night action.")
	n.Seat = seat.ID
	n.Targets = make(map[models.ActionKind][]int)
	others := e.state.Cast.AliveExcept(seat.ID)

	switch seat.Role {
	case models.Werewolf:
		mate := e.state.Cast.Teammate(seat.ID)
		if mate != 0 && e.state.Conversations < e.limits.MaxConversations {
			n.Actions = append(n.Actions, models.ActConversation)
			n.Targets[models.ActConversation] = []int{mate}
		}
		// A werewolf may strike anyone outside the pack, itself included.
		var prey []int
		for _, id := range e.state.Cast.Alive() {
			if id != mate {
				prey = append(prey, id)
			}
		}
		n.Actions = append(n.Actions, models.ActKill)
		n.Targets[models.ActKill] = prey
	case models.Witch:
		if seat.HealCharge > 0 && len(e.state.JustKilled) > 0 {
			n.Actions = append(n.Actions, models.ActResurrection)
			n.Targets[models.ActResurrection] = append([]int(nil), e.state.JustKilled...)
		} else {
			n.Spent = append(n.Spent, models.ActResurrection)
		}
		if seat.PoisonCharge > 0 {
			n.Actions = append(n.Actions, models.ActKill)
			n.Targets[models.ActKill] = others
		} else {
			n.Spent = append(n.Spent, models.ActKill)
		}
		n.Actions = append(n.Actions, models.ActNone)
	case models.Seer:
		n.Actions = append(n.Actions, models.ActCheck)
		n.Targets[models.ActCheck] = others
	}
	return n
}

// replyOptions prompts a werewolf answering its teammate's message.
func (e *Engine) replyOptions(seat *models.Seat, ev models.Event) models.Notice {
	n := e.nightOptions(seat)
	n.Type = models.NoticeConversation
	n.Source = ev.Source
	n.Content = fmt.Sprintf("%s (your teammate) says: %s\nChoose your action.", models.SeatName(ev.Source), ev.Content)
	return n
}

func (e *Engine) speakOptions(seat *models.Seat) models.Notice {
	n := e.notice(models.NoticeUserSpeak, "It is your turn to speak.")
	n.Seat = seat.ID
	n.Actions = []models.ActionKind{models.ActSpeak}
	return n
}

func (e *Engine) voteOptions(seat *models.Seat) models.Notice {
	n := e.notice(models.NoticeVoting, "Cast your vote.")
	n.Seat = seat.ID
	n.Actions = []models.ActionKind{models.ActVote}
	n.Targets = map[models.ActionKind][]int{
		models.ActVote: e.state.Cast.AliveExcept(seat.ID),
	}
	return n
}
