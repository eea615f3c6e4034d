package session

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"story-canvas-ai-bot/internal/pipeline"
)

// Mode says what the next plain text message from this user means.
type Mode string

const (
	// ModeNone treats incoming text as story input.
	ModeNone Mode = ""
	// ModeAwaitingTitle treats the next message as a replacement title.
	ModeAwaitingTitle Mode = "title"
	// ModeAwaitingKey treats the next message as an API key.
	ModeAwaitingKey Mode = "key"
)

// Session is the per-chat wizard state: the pipeline controller plus the
// few UI fields around it.
type Session struct {
	ChatID int64
	UserID int64

	Pipeline *pipeline.Controller

	Mode            Mode
	Draft           string
	WizardMessageID int
}

type Options struct {
	TTL     time.Duration
	Gateway pipeline.Gateway
}

// Store keeps sessions in an expiring cache. An expired session simply
// disappears; nothing survives it. Mutations go through Update so
// concurrent handlers for the same chat never race on the UI fields.
type Store struct {
	mu  sync.Mutex
	c   *gocache.Cache
	ttl time.Duration
	gw  pipeline.Gateway
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return &Store{
		c:   gocache.New(ttl, 10*time.Minute),
		ttl: ttl,
		gw:  opts.Gateway,
	}
}

// Get returns a copy of the session, creating it on first contact.
func (s *Store) Get(chatID, userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

// Update mutates the session under the store lock and refreshes its TTL.
func (s *Store) Update(chatID, userID int64, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(sess)
	}
	s.c.Set(sessionKey(chatID, userID), sess, s.ttl)
	return *sess
}

// Drop forgets the session entirely.
func (s *Store) Drop(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Delete(sessionKey(chatID, userID))
}

func (s *Store) getOrCreateLocked(chatID, userID int64) *Session {
	key := sessionKey(chatID, userID)
	if v, ok := s.c.Get(key); ok {
		if sess, ok := v.(*Session); ok {
			return sess
		}
	}

	sess := &Session{
		ChatID:   chatID,
		UserID:   userID,
		Pipeline: pipeline.New(s.gw),
	}
	s.c.Set(key, sess, s.ttl)
	return sess
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}
