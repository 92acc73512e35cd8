// Package session owns the dashboard's single identity: the bearer token and
// user record issued by the payments gateway.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/models"
)

// Reason explains why the session changed.
type Reason string

const (
	ReasonLogin        Reason = "login"
	ReasonRestored     Reason = "restored"
	ReasonLogout       Reason = "logout"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonExpired      Reason = "expired"
)

// EventType distinguishes sign-in from sign-out notifications.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is delivered to subscribers whenever the identity appears or disappears.
type Event struct {
	Type   EventType
	Reason Reason
	User   models.User
	At     time.Time
}

var (
	// ErrNoIdentity is returned by a Store when nothing is persisted.
	ErrNoIdentity = errors.New("session: no identity stored")
	// ErrCorrupt is returned by a Store when the persisted record is unusable.
	ErrCorrupt = errors.New("session: stored identity is corrupt")
)

// Store persists the single identity record.
type Store interface {
	Load(ctx context.Context) (*models.Identity, error)
	Save(ctx context.Context, identity models.Identity) error
	Clear(ctx context.Context) error
}

// Session is the process-wide identity holder. It is the only writer of the
// persisted record; everything else reads through it or subscribes to it.
type Session struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	identity  *models.Identity
	listeners map[uint64]func(Event)
	nextID    uint64
}

// New constructs an empty session. Call Init to restore a persisted identity.
func New(store Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		store:     store,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[uint64]func(Event)),
	}
}

// Init restores the persisted identity. A partial, corrupt or expired record
// is wiped so token and user never exist without each other.
func (s *Session) Init(ctx context.Context) error {
	identity, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoIdentity):
		return nil
	case errors.Is(err, ErrCorrupt):
		s.logger.Warn("discarding corrupt stored identity", zap.Error(err))
		return s.store.Clear(ctx)
	case err != nil:
		return err
	}

	if !identity.Valid() {
		s.logger.Warn("discarding incomplete stored identity")
		return s.store.Clear(ctx)
	}
	if s.expired(identity.Token) {
		s.logger.Info("stored identity expired")
		return s.store.Clear(ctx)
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	s.publish(Event{Type: EventSignedIn, Reason: ReasonRestored, User: identity.User, At: s.now()})
	return nil
}

// SetIdentity persists a freshly issued identity and notifies subscribers.
func (s *Session) SetIdentity(ctx context.Context, token string, user models.User) error {
	identity := models.Identity{Token: token, User: user}
	if !identity.Valid() {
		return ErrCorrupt
	}
	if err := s.store.Save(ctx, identity); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()
	s.publish(Event{Type: EventSignedIn, Reason: ReasonLogin, User: user, At: s.now()})
	return nil
}

// Teardown destroys the identity in memory and in the store. Tearing down an
// empty session is a no-op and emits nothing.
func (s *Session) Teardown(ctx context.Context, reason Reason) error {
	return s.teardown(ctx, reason, nil)
}

// teardown clears the session; when match is set it only clears that exact identity.
func (s *Session) teardown(ctx context.Context, reason Reason, match *models.Identity) error {
	s.mu.Lock()
	previous := s.identity
	if match != nil && previous != match {
		s.mu.Unlock()
		return nil
	}
	s.identity = nil
	s.mu.Unlock()

	if previous == nil {
		return nil
	}

	err := s.store.Clear(ctx)
	if err != nil {
		s.logger.Warn("failed to clear stored identity", zap.Error(err))
	}
	s.logger.Info("session torn down", zap.String("reason", string(reason)), zap.String("user_id", previous.User.ID))
	s.publish(Event{Type: EventSignedOut, Reason: reason, User: previous.User, At: s.now()})
	return err
}

// HandleUnauthorized is the transport hook invoked on any 401 from the gateway.
func (s *Session) HandleUnauthorized(ctx context.Context) {
	_ = s.Teardown(ctx, ReasonUnauthorized)
}

// Token returns the bearer token, or "" when signed out. An expired token
// tears the session down.
func (s *Session) Token(ctx context.Context) string {
	s.mu.RLock()
	identity := s.identity
	s.mu.RUnlock()
	if identity == nil {
		return ""
	}
	if s.expired(identity.Token) {
		_ = s.teardown(ctx, ReasonExpired, identity)
		return ""
	}
	return identity.Token
}

// Identity returns a copy of the current identity.
func (s *Session) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Authenticated reports whether a usable identity is held.
func (s *Session) Authenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// Subscribe registers fn for session events and returns an idempotent unsubscribe func.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) publish(evt Event) {
	s.mu.RLock()
	listeners := make([]func(Event), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(evt)
	}
}

// expired reads the exp claim without verifying the signature. Opaque tokens
// never expire locally.
func (s *Session) expired(token string) bool {
	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}
	return !s.now().Before(exp)
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
