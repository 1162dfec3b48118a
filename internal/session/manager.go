package session

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/cache"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
	"github.com/capitalize-ai/sales-consultant/pkg/metrics"
)

// StoreFactory builds the response cache of a new session.
type StoreFactory func(sessionID string) (cache.Store, error)

// MemoryStoreFactory returns a factory of bounded in-process caches.
func MemoryStoreFactory(ttl time.Duration, maxEntries int) StoreFactory {
	return func(string) (cache.Store, error) {
		return cache.NewStore(cache.DriverMemory, cache.WithTTL(ttl), cache.WithMaxEntries(maxEntries))
	}
}

// RedisStoreFactory returns a factory of caches sharing one redis client,
// each namespaced by its session id.
func RedisStoreFactory(client *redis.Client, ttl time.Duration) StoreFactory {
	return func(sessionID string) (cache.Store, error) {
		return cache.NewStore(cache.DriverRedis,
			cache.WithRedisClient(client),
			cache.WithNamespace(sessionID),
			cache.WithTTL(ttl),
		)
	}
}

// Manager owns every live session. Sessions idle longer than the idle
// timeout are torn down.
type Manager struct {
	mu       sync.Mutex
	sessions *gocache.Cache
	newStore StoreFactory
	logger   *logger.Logger
}

// NewManager creates a session manager. A zero idle timeout keeps sessions
// until the process exits.
func NewManager(idle time.Duration, newStore StoreFactory, log *logger.Logger) *Manager {
	expiration, cleanup := idle, idle/2
	if idle <= 0 {
		expiration, cleanup = gocache.NoExpiration, 0
	}

	m := &Manager{
		sessions: gocache.New(expiration, cleanup),
		newStore: newStore,
		logger:   log,
	}
	m.sessions.OnEvicted(m.teardown)
	return m
}

func (m *Manager) teardown(id string, v interface{}) {
	metrics.SessionsActive.Dec()

	st, ok := v.(*State)
	if !ok {
		return
	}
	if err := st.Close(); err != nil {
		m.logger.Warn("failed to close session cache", zap.String("session_id", id), zap.Error(err))
	}
	m.logger.Info("session ended", zap.String("session_id", id))
}

// Get returns a live session and extends its idle deadline.
func (m *Manager) Get(id string) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *Manager) getLocked(id string) (*State, bool) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, false
	}
	st := v.(*State)
	m.sessions.SetDefault(id, st)
	return st, true
}

// GetOrCreate returns the session with the given id, creating it on first use.
func (m *Manager) GetOrCreate(id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.getLocked(id); ok {
		return st, nil
	}

	store, err := m.newStore(id)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	st := NewState(id, store)
	m.sessions.SetDefault(id, st)
	metrics.SessionsActive.Inc()

	m.logger.Info("session started",
		zap.String("session_id", id),
		zap.String("conversation_id", st.CurrentID()),
	)

	return st, nil
}

// Delete ends a session immediately.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Delete(id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.sessions.Items() {
		m.sessions.Delete(id)
	}
}
