package submission

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/session"
)

const basePath = "/api/submissions"

var (
	errAlreadySubmitted = core.NewError(core.KindConflict, "you have already submitted this assignment")
	errSessionChanged   = core.NewError(core.KindUnauthorized, "the session ended while the request was running")
)

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

// Workflow runs the submit and review operations and caches their confirmed results:
// a Student's own submission per assignment, and a Teacher's per-assignment and global lists.
type Workflow struct {
	api         Caller
	guard       Guard
	logger      core.Logger
	concurrency int

	mu           sync.RWMutex
	gen          uint64 // bumped whenever the caches are dropped
	owner        string
	mine         map[string]Submission   // assignmentID -> own submission
	byAssignment map[string][]Submission // assignmentID -> submissions
	all          []Submission

	unsubscribe func()
}

func NewWorkflow(api Caller, guard Guard, logger core.Logger, conf *core.Config) *Workflow {
	w := &Workflow{
		api:         api,
		guard:       guard,
		logger:      logger,
		concurrency: conf.Probe.Concurrency,
	}
	if w.concurrency < 1 {
		w.concurrency = 1
	}
	w.reset("")
	w.unsubscribe = guard.Subscribe(w.onSessionChange)
	return w
}

// Close stops following Session changes.
func (w *Workflow) Close() { w.unsubscribe() }

func (w *Workflow) onSessionChange(sess session.Session, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !ok || sess.Identity.ID != w.owner {
		w.reset("")
		w.gen++
	}
}

// reset expects w.mu to be held (or w to be unshared).
func (w *Workflow) reset(owner string) {
	w.owner = owner
	w.mine = make(map[string]Submission)
	w.byAssignment = make(map[string][]Submission)
	w.all = nil
}

// claim makes sure the caches belong to id. expects w.mu to be held.
func (w *Workflow) claim(id session.Identity) {
	if w.owner != id.ID {
		w.reset(id.ID)
	}
}

// authorize returns the caller's Identity along with the cache generation it was checked against.
// The generation is read first so that a teardown racing with the check is never missed.
func (w *Workflow) authorize(roles ...session.Role) (session.Identity, uint64, error) {
	w.mu.RLock()
	gen := w.gen
	w.mu.RUnlock()
	who, err := w.guard.Authorize(roles...)
	return who, gen, err
}

// commit applies fn to the caches of who, unless the Session changed since gen was taken.
// A response that arrives after a logout or a 401 teardown is never cached.
func (w *Workflow) commit(gen uint64, who session.Identity, fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return false
	}
	w.claim(who)
	fn()
	return true
}

// Student side

// Submit creates the caller's only submission for assignmentID.
func (w *Workflow) Submit(ctx context.Context, assignmentID, answer string) (Submission, error) {
	who, gen, err := w.authorize(session.RoleStudent)
	if err != nil {
		return Submission{}, err
	}
	answer, err = ValidateAnswer(answer)
	if err != nil {
		return Submission{}, err
	}
	if _, ok := w.Mine(assignmentID); ok {
		return Submission{}, errAlreadySubmitted
	}

	var sub Submission
	req := newSubmission{Answer: answer}
	if err := w.api.Call(ctx, http.MethodPost, basePath+"/"+url.PathEscape(assignmentID), req, &sub); err != nil {
		return Submission{}, err
	}

	w.commit(gen, who, func() { w.mine[assignmentID] = sub })
	w.logger.Info("submission created", map[string]interface{}{"assignmentId": assignmentID, "id": sub.ID}, who.Person())
	return sub, nil
}

// MyOwn fetches the caller's submission for assignmentID. "None yet" is (nil, nil),
// whether the server answered not-found or an empty body.
func (w *Workflow) MyOwn(ctx context.Context, assignmentID string) (*Submission, error) {
	who, gen, err := w.authorize(session.RoleStudent)
	if err != nil {
		return nil, err
	}

	var sub Submission
	err = w.api.Call(ctx, http.MethodGet, basePath+"/my/"+url.PathEscape(assignmentID), nil, &sub)
	if err != nil && !core.IsKind(err, core.KindNotFound) {
		return nil, err
	}
	none := err != nil || sub.ID == ""

	ok := w.commit(gen, who, func() {
		if none {
			delete(w.mine, assignmentID)
		} else {
			w.mine[assignmentID] = sub
		}
	})
	switch {
	case !ok:
		return nil, errSessionChanged
	case none:
		return nil, nil
	default:
		return &sub, nil
	}
}

// ProbeMine runs MyOwn for every assignment concurrently. Probes are independent: a failed probe is
// logged and its assignment is simply absent from the result.
// It fails only when the Session itself is gone once every lookup is done, eg. after a 401 teardown.
func (w *Workflow) ProbeMine(ctx context.Context, assignmentIDs []string) (map[string]Submission, error) {
	if _, err := w.guard.Authorize(session.RoleStudent); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		found = make(map[string]Submission, len(assignmentIDs))
		g     errgroup.Group
	)
	g.SetLimit(w.concurrency)
	for _, id := range assignmentIDs {
		id := id
		g.Go(func() error {
			sub, err := w.MyOwn(ctx, id)
			if err != nil {
				w.logger.Warn("probing own submission", map[string]interface{}{"assignmentId": id}, err)
				return nil
			}
			if sub != nil {
				mu.Lock()
				found[id] = *sub
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if _, err := w.guard.Authorize(session.RoleStudent); err != nil {
		return nil, err
	}
	return found, nil
}

// Mine returns the cached own submission for assignmentID.
func (w *Workflow) Mine(assignmentID string) (Submission, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	sub, ok := w.mine[assignmentID]
	return sub, ok
}

// CanSubmit reports whether the submit action may be offered for assignmentID.
func (w *Workflow) CanSubmit(assignmentID string) bool {
	_, ok := w.Mine(assignmentID)
	return !ok
}

// Teacher side

// ListForAssignment fetches the submissions of one assignment.
func (w *Workflow) ListForAssignment(ctx context.Context, assignmentID string) ([]Submission, error) {
	who, gen, err := w.authorize(session.RoleTeacher)
	if err != nil {
		return nil, err
	}
	var subs []Submission
	if err := w.api.Call(ctx, http.MethodGet, basePath+"/assignment/"+url.PathEscape(assignmentID), nil, &subs); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []Submission{}
	}

	if !w.commit(gen, who, func() { w.byAssignment[assignmentID] = subs }) {
		return nil, errSessionChanged
	}
	return append([]Submission(nil), subs...), nil
}

// ListAll fetches every submission across the Teacher's assignments.
func (w *Workflow) ListAll(ctx context.Context) ([]Submission, error) {
	who, gen, err := w.authorize(session.RoleTeacher)
	if err != nil {
		return nil, err
	}
	var subs []Submission
	if err := w.api.Call(ctx, http.MethodGet, basePath, nil, &subs); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []Submission{}
	}

	if !w.commit(gen, who, func() { w.all = subs }) {
		return nil, errSessionChanged
	}
	return append([]Submission(nil), subs...), nil
}

// ForAssignment returns the cached submissions of assignmentID.
func (w *Workflow) ForAssignment(assignmentID string) []Submission {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Submission(nil), w.byAssignment[assignmentID]...)
}

// All returns the cached global list.
func (w *Workflow) All() []Submission {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Submission(nil), w.all...)
}

// SetReviewed sets the reviewed flag of a submission.
func (w *Workflow) SetReviewed(ctx context.Context, submissionID string, reviewed bool) (Submission, error) {
	return w.review(ctx, submissionID, "review", reviewRequest{Reviewed: reviewed})
}

// SetMark grades a submission. m must lie in [MinMark, MaxMark].
func (w *Workflow) SetMark(ctx context.Context, submissionID string, m float64) (Submission, error) {
	if _, err := w.guard.Authorize(session.RoleTeacher); err != nil {
		return Submission{}, err
	}
	if err := ValidateMark(m); err != nil {
		return Submission{}, err
	}
	return w.review(ctx, submissionID, "mark", markRequest{Mark: m})
}

// SaveReview applies a mark (when markInput is not blank) and then the reviewed flag.
// It returns only once both have been confirmed. A blank mark means "reviewed without a grade".
func (w *Workflow) SaveReview(ctx context.Context, submissionID, markInput string, reviewed bool) (Submission, error) {
	if _, err := w.guard.Authorize(session.RoleTeacher); err != nil {
		return Submission{}, err
	}
	m, err := ParseMark(markInput)
	if err != nil {
		return Submission{}, err
	}
	if m != nil {
		if _, err := w.SetMark(ctx, submissionID, *m); err != nil {
			return Submission{}, err
		}
	}
	return w.SetReviewed(ctx, submissionID, reviewed)
}

func (w *Workflow) review(ctx context.Context, submissionID, action string, body interface{}) (Submission, error) {
	who, gen, err := w.authorize(session.RoleTeacher)
	if err != nil {
		return Submission{}, err
	}
	var sub Submission
	if err := w.api.Call(ctx, http.MethodPost, basePath+"/"+url.PathEscape(submissionID)+"/"+action, body, &sub); err != nil {
		return Submission{}, err
	}

	w.commit(gen, who, func() { w.replace(sub) })
	w.logger.Info("submission "+action+" saved", map[string]interface{}{"id": sub.ID}, who.Person())
	return sub, nil
}

// replace swaps every cached copy of sub. expects w.mu to be held.
func (w *Workflow) replace(sub Submission) {
	for i := range w.all {
		if w.all[i].ID == sub.ID {
			w.all[i] = sub
		}
	}
	for _, subs := range w.byAssignment {
		for i := range subs {
			if subs[i].ID == sub.ID {
				subs[i] = sub
			}
		}
	}
	for aid, s := range w.mine {
		if s.ID == sub.ID {
			w.mine[aid] = sub
		}
	}
}
