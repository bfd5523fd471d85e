package assignment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/session"
)

const basePath = "/api/assignments"

var errSessionChanged = core.NewError(core.KindUnauthorized, "the session ended while the request was running")

type (
	// Caller performs authenticated API calls.
	Caller interface {
		Call(ctx context.Context, method, path string, body, out interface{}) error
	}

	// Guard gates commands by role and reports Session changes.
	Guard interface {
		Authorize(roles ...session.Role) (session.Identity, error)
		Subscribe(fn session.Listener) func()
	}
)

// Store is the write-through cache of the assignments visible to the current Session.
// The cache only ever holds representations returned by the server.
type Store struct {
	api    Caller
	guard  Guard
	logger core.Logger

	mu    sync.RWMutex
	gen   uint64 // bumped whenever the cache is dropped
	items []Assignment
	owner string // Identity.ID the cache belongs to

	unsubscribe func()
}

func NewStore(api Caller, guard Guard, logger core.Logger) *Store {
	s := &Store{api: api, guard: guard, logger: logger}
	s.unsubscribe = guard.Subscribe(s.onSessionChange)
	return s
}

// Close stops following Session changes.
func (s *Store) Close() { s.unsubscribe() }

func (s *Store) onSessionChange(sess session.Session, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok || sess.Identity.ID != s.owner {
		s.items = nil
		s.owner = ""
		s.gen++
	}
}

// authorize returns the caller's Identity along with the cache generation it was checked against.
func (s *Store) authorize(roles ...session.Role) (session.Identity, uint64, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()
	who, err := s.guard.Authorize(roles...)
	return who, gen, err
}

// commit applies fn to the cache of who, unless the Session changed since gen was taken.
func (s *Store) commit(gen uint64, who session.Identity, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	if s.owner != who.ID {
		s.items, s.owner = nil, who.ID
	}
	fn()
	return true
}

// Items returns a snapshot of the cache, in server order.
func (s *Store) Items() []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Assignment(nil), s.items...)
}

// Get returns the cached Assignment with id.
func (s *Store) Get(id string) (Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return Assignment{}, false
}

// List fetches the authoritative set, optionally filtered by status, and replaces the cache with it.
// Students may only filter by Published or Completed.
func (s *Store) List(ctx context.Context, filter ...Status) ([]Assignment, error) {
	id, gen, err := s.authorize(session.RoleTeacher, session.RoleStudent)
	if err != nil {
		return nil, err
	}

	path := basePath
	if len(filter) > 0 && filter[0] != StatusUnknown {
		if id.IsStudent() && filter[0] == StatusDraft {
			return nil, core.NewError(core.KindForbidden, "students cannot list draft assignments")
		}
		path += "?status=" + url.QueryEscape(filter[0].String())
	}

	var items []Assignment
	if err := s.api.Call(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Assignment{}
	}

	if !s.commit(gen, id, func() { s.items = items }) {
		return nil, errSessionChanged
	}
	return append([]Assignment(nil), items...), nil
}

// Create adds a Draft assignment and prepends the server's copy to the cache.
func (s *Store) Create(ctx context.Context, f Fields) (Assignment, error) {
	id, gen, err := s.authorize(session.RoleTeacher)
	if err != nil {
		return Assignment{}, err
	}
	if err := f.Validate(); err != nil {
		return Assignment{}, err
	}

	var a Assignment
	if err := s.api.Call(ctx, http.MethodPost, basePath, f, &a); err != nil {
		return Assignment{}, err
	}

	s.commit(gen, id, func() { s.items = append([]Assignment{a}, s.items...) })
	s.logger.Info("assignment created", map[string]interface{}{"id": a.ID}, id.Person())
	return a, nil
}

// Update edits an assignment that is not Completed.
func (s *Store) Update(ctx context.Context, id string, f Fields) (Assignment, error) {
	who, gen, err := s.authorize(session.RoleTeacher)
	if err != nil {
		return Assignment{}, err
	}
	if err := f.Validate(); err != nil {
		return Assignment{}, err
	}
	if cached, ok := s.Get(id); ok && !cached.Status.Editable() {
		return Assignment{}, core.NewError(core.KindInvalidState, fmt.Sprintf("a %s assignment cannot be edited", cached.Status))
	}

	var a Assignment
	if err := s.api.Call(ctx, http.MethodPut, itemPath(id), f, &a); err != nil {
		return Assignment{}, core.Reclassify(err, core.KindConflict, core.KindInvalidState)
	}
	s.commit(gen, who, func() { s.replace(a) })
	return a, nil
}

// Publish moves a Draft assignment to Published.
func (s *Store) Publish(ctx context.Context, id string) (Assignment, error) {
	return s.transition(ctx, id, StatusPublished, "publish")
}

// Complete moves a Published assignment to Completed.
func (s *Store) Complete(ctx context.Context, id string) (Assignment, error) {
	return s.transition(ctx, id, StatusCompleted, "complete")
}

func (s *Store) transition(ctx context.Context, id string, next Status, verb string) (Assignment, error) {
	who, gen, err := s.authorize(session.RoleTeacher)
	if err != nil {
		return Assignment{}, err
	}
	if cached, ok := s.Get(id); ok && !cached.Status.CanTransitionTo(next) {
		return Assignment{}, core.NewError(core.KindInvalidTransition,
			fmt.Sprintf("cannot %s a %s assignment", verb, cached.Status))
	}

	var a Assignment
	if err := s.api.Call(ctx, http.MethodPost, itemPath(id)+"/"+verb, nil, &a); err != nil {
		return Assignment{}, core.Reclassify(err, core.KindConflict, core.KindInvalidTransition)
	}
	s.commit(gen, who, func() { s.replace(a) })
	s.logger.Info("assignment status changed", map[string]interface{}{"id": id, "status": a.Status.String()}, who.Person())
	return a, nil
}

// Delete removes the assignment once the server confirmed it.
func (s *Store) Delete(ctx context.Context, id string) error {
	who, gen, err := s.authorize(session.RoleTeacher)
	if err != nil {
		return err
	}
	if err := s.api.Call(ctx, http.MethodDelete, itemPath(id), nil, nil); err != nil {
		return err
	}

	s.commit(gen, who, func() {
		if i := s.indexOf(id); i >= 0 {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
		}
	})
	s.logger.Info("assignment deleted", map[string]interface{}{"id": id}, who.Person())
	return nil
}

// replace swaps the cached entry with a's id for a. Unknown ids are ignored. expects s.mu to be held.
func (s *Store) replace(a Assignment) {
	if i := s.indexOf(a.ID); i >= 0 {
		s.items[i] = a
	}
}

// indexOf expects s.mu to be held.
func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
