package models

import (
	"fmt"
	"math/rand/v2"
)

// Role is the secret identity dealt to a seat.
type Role string

const (
	Werewolf Role = "werewolf"
	Villager Role = "villager"
	Seer     Role = "seer"
	Witch    Role = "witch"
)

// Phase is the sub-stage of a game day.
type Phase string

const (
	PhaseNight      Phase = "night"
	PhaseDay        Phase = "day"
	PhaseDiscussion Phase = "discussion"
	PhaseVoting     Phase = "voting"
	PhaseCountVotes Phase = "count_votes"
	PhaseDayChange  Phase = "day_change"
)

// Winner labels the faction that won a finished game.
type Winner string

const (
	NoWinner      Winner = ""
	VillagersWin  Winner = "villagers"
	WerewolvesWin Winner = "werewolves"
)

const (
	SeatCount = 6
	HumanSeat = 6

	// SharedLog is the ledger key of the public record.
	SharedLog = 0
)

// Deck is the fixed role multiset dealt at the start of every game.
var Deck = [SeatCount]Role{Werewolf, Werewolf, Villager, Villager, Seer, Witch}

// NightRoles is the order in which roles are woken at night.
var NightRoles = []Role{Werewolf, Werewolf, Seer, Witch}

// Seat is one of the six fixed participants.
type Seat struct {
	ID    int    `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Role  Role   `yaml:"role" json:"role"`
	Alive bool   `yaml:"alive" json:"alive"`

	// Witch potions. Zero for every other role.
	HealCharge   int `yaml:"heal_charge,omitempty" json:"heal_charge,omitempty"`
	PoisonCharge int `yaml:"poison_charge,omitempty" json:"poison_charge,omitempty"`
}

// Human reports whether the seat is played through request/response turns.
func (s *Seat) Human() bool {
	return s.ID == HumanSeat
}

// SeatName is the display name used for a seat id in narration.
func SeatName(id int) string {
	return fmt.Sprintf("Player %d", id)
}

// Cast holds all six seats indexed by id-1. Seats are never removed.
type Cast struct {
	seats [SeatCount]*Seat
}

// NewCast shuffles the deck with rng and deals ids 1..6 in shuffle order.
func NewCast(rng *rand.Rand) *Cast {
	roles := Deck
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	return CastFromRoles(roles)
}

// CastFromRoles deals roles[i] to seat i+1.
func CastFromRoles(roles [SeatCount]Role) *Cast {
	c := &Cast{}
	for i, role := range roles {
		seat := &Seat{
			ID:    i + 1,
			Name:  SeatName(i + 1),
			Role:  role,
			Alive: true,
		}
		if role == Witch {
			seat.HealCharge = 1
			seat.PoisonCharge = 1
		}
		c.seats[i] = seat
	}
	return c
}

// Seat returns the seat with the given id.
func (c *Cast) Seat(id int) (*Seat, bool) {
	if id < 1 || id > SeatCount {
		return nil, false
	}
	return c.seats[id-1], true
}

// Seats returns every seat in id order.
func (c *Cast) Seats() []*Seat {
	return c.seats[:]
}

// Roles returns the dealt roles in id order.
func (c *Cast) Roles() [SeatCount]Role {
	var roles [SeatCount]Role
	for i, s := range c.seats {
		roles[i] = s.Role
	}
	return roles
}

func (c *Cast) Alive() []int {
	return c.AliveExcept(0)
}

// AliveExcept lists living seat ids in id order, skipping exclude.
func (c *Cast) AliveExcept(exclude int) []int {
	ids := make([]int, 0, SeatCount)
	for _, s := range c.seats {
		if s.Alive && s.ID != exclude {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// IsAlive reports whether id names a living seat.
func (c *Cast) IsAlive(id int) bool {
	s, ok := c.Seat(id)
	return ok && s.Alive
}

// Teammate returns the other living werewolf, or 0 when id is not a
// werewolf or its partner is dead.
func (c *Cast) Teammate(id int) int {
	self, ok := c.Seat(id)
	if !ok || self.Role != Werewolf {
		return 0
	}
	for _, s := range c.seats {
		if s.Role == Werewolf && s.ID != id && s.Alive {
			return s.ID
		}
	}
	return 0
}

// ActOrder picks one representative per night role in NightRoles order.
func (c *Cast) ActOrder() []int {
	order := make([]int, 0, len(NightRoles))
	taken := make(map[int]bool)
	for _, role := range NightRoles {
		for _, s := range c.seats {
			if s.Role == role && !taken[s.ID] {
				order = append(order, s.ID)
				taken[s.ID] = true
				break
			}
		}
	}
	return order
}

// Count returns the number of living werewolves and living others.
func (c *Cast) Count() (werewolves, others int) {
	for _, s := range c.seats {
		if !s.Alive {
			continue
		}
		if s.Role == Werewolf {
			werewolves++
		} else {
			others++
		}
	}
	return werewolves, others
}
