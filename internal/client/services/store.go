package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/client"
	"github.com/dmitrijs2005/gophmarks/internal/client/feed"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
)

// ErrStopped is returned by commands issued after Run has returned.
var ErrStopped = errors.New("store stopped")

// Form holds the create-bookmark input fields.
type Form struct {
	Title string
	URL   string
}

// View is a snapshot of everything the UI renders. Bookmarks is already in
// display order and owned by the caller.
type View struct {
	Session   models.Session
	Bookmarks []models.Bookmark
	Form      Form
	Message   string

	// MessageSeq changes every time a message is set, even when the text
	// repeats a previous one.
	MessageSeq uint64
}

// Store owns the client state. All mutations happen on the goroutine running
// Run: session transitions, feed events and the results posted by commands
// are applied there one at a time, in arrival order. Other goroutines read
// through View.
type Store struct {
	client  client.Client
	loader  *Loader
	logger  logging.Logger
	timeout time.Duration

	inbox   chan envelope
	ready   chan struct{}
	done    chan struct{}
	updates chan struct{}

	mu      sync.RWMutex
	session models.Session
	items   []models.Bookmark
	view    []models.Bookmark
	form    Form
	message string
	msgSeq  uint64

	// Owned by Run. gen changes on every session transition and tags
	// asynchronous reloads so stale results are dropped.
	gen    uint64
	sub    feed.Subscription
	events <-chan models.ChangeEvent
}

// envelope carries one result to the writer; applied is closed once it has
// been handled.
type envelope struct {
	msg     any
	applied chan struct{}
}

type snapshotResult struct {
	gen   uint64
	items []models.Bookmark
	err   error
}

type createResult struct {
	form Form
	err  error
}

type deleteResult struct {
	id  string
	err error
}

type notice struct {
	text string
}

func NewStore(c client.Client, logger logging.Logger, timeout time.Duration) *Store {
	return &Store{
		client:  c,
		loader:  NewLoader(c, timeout),
		logger:  logger,
		timeout: timeout,
		inbox:   make(chan envelope, 32),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		updates: make(chan struct{}, 1),
		session: models.AbsentSession(),
	}
}

// Ready is closed once the persisted session has been resolved and, if
// present, loaded.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Updates receives a value after state changes. Bursts are coalesced; call
// View to see the latest state.
func (s *Store) Updates() <-chan struct{} { return s.updates }

func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Session:   s.session,
		Bookmarks: slices.Clone(s.view),
		Form:      s.form,
		Message:   s.message,

		MessageSeq: s.msgSeq,
	}
}

func (s *Store) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Run resolves the persisted session and then processes transitions, feed
// events and command results until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	defer close(s.done)

	rctx, cancel := s.withTimeout(ctx)
	sess, err := s.client.ResolveSession(rctx)
	cancel()
	if err != nil {
		s.logger.Error(ctx, "session resolution failed", "err", err)
		s.mutate(func() { s.setMessage(userMessage("restore session", err)) })
		sess = models.AbsentSession()
	}
	s.transition(ctx, sess)
	close(s.ready)

	transitions := s.client.Transitions()
	for {
		select {
		case <-ctx.Done():
			s.closeSubscription(context.Background())
			return ctx.Err()

		case sess, ok := <-transitions:
			if !ok {
				transitions = nil
				continue
			}
			s.transition(ctx, sess)

		case ev, ok := <-s.events:
			if !ok {
				s.feedLost(ctx)
				continue
			}
			if ev.Partial && ev.Type != models.EventDelete {
				s.refetch(ctx)
				continue
			}
			s.mutate(func() { s.items = Apply(s.items, ev) })

		case env := <-s.inbox:
			s.handle(ctx, env.msg)
			close(env.applied)
		}
	}
}

func (s *Store) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case snapshotResult:
		if m.gen != s.gen {
			s.logger.Debug(ctx, "dropping stale snapshot", "gen", m.gen, "current", s.gen)
			return
		}
		s.applySnapshot(ctx, m.items, m.err)
		if m.err == nil && s.sub == nil && s.Session().Present() {
			s.subscribe(ctx)
		}

	case createResult:
		s.mutate(func() {
			if m.err != nil {
				s.form = m.form
				s.setMessage(userMessage("create", m.err))
				return
			}
			s.form = Form{}
			s.setMessage("")
		})

	case deleteResult:
		s.mutate(func() {
			if m.err != nil {
				s.setMessage(userMessage("delete", m.err))
				return
			}
			s.setMessage("")
		})

	case notice:
		s.mutate(func() { s.setMessage(m.text) })

	case genQuery:
		m.reply <- genReply{gen: s.gen, present: s.Session().Present()}
	}
}

// post hands msg to the writer and waits until it has been applied.
func (s *Store) post(ctx context.Context, msg any) {
	env := envelope{msg: msg, applied: make(chan struct{})}
	select {
	case s.inbox <- env:
	case <-s.done:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-env.applied:
	case <-s.done:
	case <-ctx.Done():
	}
}

// mutate runs fn under the write lock, reprojects and notifies watchers.
// Writer only.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.view = Project(s.items)
	s.mu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// setMessage replaces the user-visible message. Caller holds mu.
func (s *Store) setMessage(text string) {
	s.message = text
	if text != "" {
		s.msgSeq++
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
