package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tatianab/werewolf/internal/engine"
	"github.com/tatianab/werewolf/internal/models"
)

// NewFactory deals every game with a fresh random cast played by agents.
func NewFactory(agents map[models.Role]engine.Agent, limits engine.Limits, log zerolog.Logger) Factory {
	return func(h engine.Human) *engine.Engine {
		return engine.New(engine.Options{
			Agents: agents,
			Human:  h,
			Limits: limits,
			Logger: log,
		})
	}
}

// Registry holds live sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	log      zerolog.Logger
}

func NewRegistry(factory Factory, log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		log:      log,
	}
}

// Create deals a new game under a fresh id.
func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.factory, r.log)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.log.Info().Str("session", s.ID).Str("human_role", string(s.HumanRole())).Msg("session created")
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete ends the session and forgets it.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.End()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
