package session

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
)

var (
	errNoSession    = core.NewError(core.KindUnauthorized, "you are not logged in")
	errWrongRole    = core.NewError(core.KindForbidden, "permission denied")
	errEmptySession = errors.New("session has no token")
)

// Listener is called after every change of the current Session; ok is false once it has been torn down.
type Listener func(sess Session, ok bool)

// State owns the process-wide Session.
// It is initialised by Set (login) or Restore (start-up) and torn down by Clear (logout) or Invalidate.
type State struct {
	storage Storage
	logger  core.Logger

	mu      sync.RWMutex
	current *Session

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewState(storage Storage, logger core.Logger) *State {
	return &State{
		storage:   storage,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Restore loads a previously persisted Session. A missing or unreadable entry is not an error:
// the process simply starts logged out, and unreadable entries are discarded.
func (s *State) Restore() (bool, error) {
	token, ok, err := s.storage.Get(TokenKey)
	if err != nil {
		return false, errors.Wrap(err, "reading token")
	}
	if !ok || token == "" {
		return false, nil
	}
	raw, ok, err := s.storage.Get(UserKey)
	if err != nil {
		return false, errors.Wrap(err, "reading user")
	}
	var id Identity
	if ok {
		err = json.Unmarshal([]byte(raw), &id)
	}
	if !ok || err != nil || id.ID == "" {
		s.logger.Warn("discarding unreadable persisted session", map[string]interface{}{"hasUser": ok}, err)
		return false, errors.Wrap(s.storage.Remove(TokenKey, UserKey), "discarding session")
	}

	sess := Session{Identity: id, Token: token}
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.publish(sess, true)
	return true, nil
}

// Current is a synchronous read of the Session.
func (s *State) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Token returns the bearer token of the current Session, "" when logged out.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Set persists sess and makes it current.
func (s *State) Set(sess Session) error {
	if sess.Token == "" {
		return errEmptySession
	}
	raw, err := json.Marshal(sess.Identity)
	if err != nil {
		return errors.Wrap(err, "marshalling identity")
	}
	if err := s.storage.Set(TokenKey, sess.Token); err != nil {
		return errors.Wrap(err, "persisting token")
	}
	if err := s.storage.Set(UserKey, string(raw)); err != nil {
		return errors.Wrap(err, "persisting user")
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.publish(sess, true)
	return nil
}

// Clear removes the Session from memory and storage. Idempotent.
func (s *State) Clear() error {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	err := s.storage.Remove(TokenKey, UserKey)
	if had {
		s.publish(Session{}, false)
	}
	return errors.Wrap(err, "removing persisted session")
}

// Invalidate tears the Session down after the server rejected its credential.
func (s *State) Invalidate() {
	if err := s.Clear(); err != nil {
		s.logger.Error("invalidating session", err)
		return
	}
	s.logger.Info("session invalidated by server")
}

// Subscribe registers fn to be told about every Session change. The returned func unsubscribes.
func (s *State) Subscribe(fn Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *State) publish(sess Session, ok bool) {
	s.lmu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(sess, ok)
	}
}

// RequireRole reports whether the current Session belongs to role.
func (s *State) RequireRole(role Role) bool {
	sess, ok := s.Current()
	return ok && sess.Identity.Role == role
}

// Authorize returns the current Identity if it holds one of roles (any role when none are given).
func (s *State) Authorize(roles ...Role) (Identity, error) {
	sess, ok := s.Current()
	if !ok {
		return Identity{}, errNoSession
	}
	if len(roles) == 0 {
		return sess.Identity, nil
	}
	for _, r := range roles {
		if sess.Identity.Role == r {
			return sess.Identity, nil
		}
	}
	return Identity{}, errWrongRole
}
