package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

const sessionCookieName = "hb_session"

// Guild is a guild the logged-in user belongs to.
type Guild struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	Icon        string       `json:"icon,omitempty"`
	Owner       bool         `json:"owner"`
	Permissions string       `json:"permissions"`
}

// User is the identity behind a dashboard session.
type User struct {
	ID         snowflake.ID `json:"id"`
	Username   string       `json:"username"`
	GlobalName string       `json:"globalName,omitempty"`
	Avatar     string       `json:"avatar,omitempty"`
	Guilds     []Guild      `json:"guilds"`
}

// CanAccess reports whether the user is a member of the guild.
func (u *User) CanAccess(guildID snowflake.ID) bool {
	for _, g := range u.Guilds {
		if g.ID == guildID {
			return true
		}
	}
	return false
}

type session struct {
	user      *User
	expiresAt time.Time
}

// SessionStore keeps dashboard sessions in memory.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create stores a session for the user and returns its ID.
func (s *SessionStore) Create(user *User) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{user: user, expiresAt: s.now().Add(s.ttl)}
	return id
}

// Get returns the user for a live session. Expired sessions are removed.
func (s *SessionStore) Get(id string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return sess.user, true
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Prune removes expired sessions and returns how many were removed.
func (s *SessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

type userKey struct{}

// WithUser returns a context carrying the dashboard user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the dashboard user, if the request is authenticated.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey{}).(*User)
	return user, ok && user != nil
}
