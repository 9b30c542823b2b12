package checkout

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store guarda as sessões do wizard em memória, nada além disso. Sessões
// paradas além do TTL são descartadas pelo janitor, cancelando qualquer
// polling pendente junto.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

const defaultSessionTTL = 30 * time.Minute

func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      defaultSessionTTL,
		stop:     make(chan struct{}),
	}
}

func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove tira a sessão do mapa e devolve o poller pendente (se houver) para
// o chamador cancelar fora do lock.
func (st *Store) Remove(id uuid.UUID) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil
	}
	delete(st.sessions, id)
	return s
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// StartJanitor varre as sessões paradas a cada intervalo. Para com Close.
func (st *Store) StartJanitor(interval time.Duration, onExpire func(*Session)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-st.stop:
				return
			case <-ticker.C:
				for _, s := range st.expired() {
					log.Printf("[CHECKOUT][gc] sessao=%s descartada por inatividade", s.ID)
					if onExpire != nil {
						onExpire(s)
					}
				}
			}
		}
	}()
}

func (st *Store) expired() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := time.Now().Add(-st.ttl)
	var out []*Session
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			out = append(out, s)
		}
	}
	return out
}

func (st *Store) Close() {
	st.stopOnce.Do(func() { close(st.stop) })
}
