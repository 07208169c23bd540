package navigation

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// SessionParams describes a session to create.
type SessionParams struct {
	Destination Destination
	Locations   LocationProvider
	Headings    HeadingProvider
	Sink        RenderSink
	// Router overrides the manager's router when set.
	Router Router
}

// Manager keeps track of live sessions by ID.
type Manager struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	config       Config
	router       Router
	logger       *slog.Logger
	shutdownOnce sync.Once
}

// NewManager creates an empty manager. Sessions it creates use cfg and router.
func NewManager(cfg Config, router Router, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		config:   cfg,
		router:   router,
		logger:   logger,
	}
}

// Config returns the tuning applied to new sessions.
func (manager *Manager) Config() Config {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.config
}

// SetConfig replaces the tuning used for sessions created afterwards.
// Running sessions keep the values they started with.
func (manager *Manager) SetConfig(cfg Config) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.config = cfg
}

// Create registers a new, unstarted session.
func (manager *Manager) Create(params SessionParams) *Session {
	router := params.Router
	if router == nil {
		router = manager.router
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()

	id := uuid.NewString()
	session := NewSession(id, manager.config, params.Destination, params.Locations, params.Headings, router,
		WithSink(params.Sink),
		WithLogger(manager.logger))
	manager.sessions[id] = session
	return session
}

// Get returns the session with id or ErrSessionNotFound.
func (manager *Manager) Get(id string) (*Session, error) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	session, ok := manager.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Remove stops the session and forgets it.
func (manager *Manager) Remove(id string) error {
	manager.mu.Lock()
	session, ok := manager.sessions[id]
	delete(manager.sessions, id)
	manager.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Stop()
	return nil
}

// List returns all sessions, oldest first.
func (manager *Manager) List() []*Session {
	manager.mu.RLock()
	sessions := make([]*Session, 0, len(manager.sessions))
	for _, s := range manager.sessions {
		sessions = append(sessions, s)
	}
	manager.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt().Equal(sessions[j].CreatedAt()) {
			return sessions[i].ID() < sessions[j].ID()
		}
		return sessions[i].CreatedAt().Before(sessions[j].CreatedAt())
	})
	return sessions
}

// Len returns the number of registered sessions.
func (manager *Manager) Len() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.sessions)
}

// Shutdown stops every session. It is safe to call more than once.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		manager.mu.Lock()
		sessions := manager.sessions
		manager.sessions = make(map[string]*Session)
		manager.mu.Unlock()

		var wg sync.WaitGroup
		for _, s := range sessions {
			wg.Add(1)
			go func(s *Session) {
				defer wg.Done()
				s.Stop()
			}(s)
		}
		wg.Wait()
		manager.logger.Info("navigation sessions stopped", slog.Int("count", len(sessions)))
	})
}
