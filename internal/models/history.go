package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Entry is one line of a history log.
type Entry struct {
	Day     int       `yaml:"day" json:"day"`
	Phase   Phase     `yaml:"phase" json:"phase"`
	Kind    EventKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	Source  int       `yaml:"source,omitempty" json:"source,omitempty"`
	Target  int       `yaml:"target,omitempty" json:"target,omitempty"`
	Content string    `yaml:"content" json:"content"`
}

// Ledger keeps an append-only log per seat plus the shared log under
// SharedLog. It is safe for concurrent use so reviews can be served while a
// game is running.
type Ledger struct {
	mu   sync.RWMutex
	logs map[int][]Entry
}

func NewLedger() *Ledger {
	l := &Ledger{logs: make(map[int][]Entry, SeatCount+1)}
	for id := SharedLog; id <= SeatCount; id++ {
		l.logs[id] = nil
	}
	return l
}

func (l *Ledger) AppendShared(e Entry) {
	l.AppendSeat(SharedLog, e)
}

func (l *Ledger) AppendSeat(id int, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs[id] = append(l.logs[id], e)
}

// Entries returns a copy of the log kept for id.
func (l *Ledger) Entries(id int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.logs[id])
}

func (l *Ledger) Shared() []Entry {
	return l.Entries(SharedLog)
}

// Briefing is the narrative a seat decides from: its own night entries plus
// the public daytime record, ordered by day. Entries of the same day keep
// their append order, private ones first.
func (l *Ledger) Briefing(id int) string {
	l.mu.RLock()
	var picked []Entry
	for _, e := range l.logs[id] {
		if e.Phase == PhaseNight {
			picked = append(picked, e)
		}
	}
	for _, e := range l.logs[SharedLog] {
		switch e.Phase {
		case PhaseDay, PhaseDiscussion, PhaseVoting:
			picked = append(picked, e)
		}
	}
	l.mu.RUnlock()

	slices.SortStableFunc(picked, func(a, b Entry) int {
		return cmp.Compare(a.Day, b.Day)
	})

	lines := make([]string, len(picked))
	for i, e := range picked {
		lines[i] = fmt.Sprintf("Day %d (%s): %s", e.Day, e.Phase, e.Content)
	}
	return strings.Join(lines, "\n")
}
