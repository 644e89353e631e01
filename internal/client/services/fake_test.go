package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/feed"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- fake subscription ----

type fakeSub struct {
	id     string
	ch     chan models.ChangeEvent
	once   sync.Once
	err    error
	closed bool
	owner  *fakeClient
}

func (f *fakeSub) ID() string                        { return f.id }
func (f *fakeSub) Events() <-chan models.ChangeEvent { return f.ch }
func (f *fakeSub) Err() error                        { return f.err }

func (f *fakeSub) Close() error {
	f.once.Do(func() {
		f.owner.record("close:" + f.id)
		f.owner.mu.Lock()
		f.closed = true
		f.owner.mu.Unlock()
	})
	return nil
}

// fail ends the subscription from the transport side.
func (f *fakeSub) fail(err error) {
	f.err = err
	close(f.ch)
}

// ---- fake client ----

type fakeClient struct {
	mu sync.Mutex

	resolve     models.Session
	resolveErr  error
	transitions chan models.Session

	listFn   func(ctx context.Context) ([]models.Bookmark, error)
	insertFn func(ctx context.Context, title, url string) (*models.Bookmark, error)
	deleteFn func(ctx context.Context, id string) error

	subscribeErr error
	subs         []*fakeSub
	log          []string

	inserts, deletes, lists int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		resolve:     models.AbsentSession(),
		transitions: make(chan models.Session),
	}
}

func (f *fakeClient) record(entry string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, entry)
}

func (f *fakeClient) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func (f *fakeClient) ResolveSession(context.Context) (models.Session, error) {
	return f.resolve, f.resolveErr
}

func (f *fakeClient) Transitions() <-chan models.Session { return f.transitions }

func (f *fakeClient) SignIn(context.Context, string, string) error { return nil }
func (f *fakeClient) SignOut(context.Context) error                { return nil }

func (f *fakeClient) List(ctx context.Context) ([]models.Bookmark, error) {
	f.mu.Lock()
	f.lists++
	fn := f.listFn
	f.mu.Unlock()
	f.record("list")
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (f *fakeClient) Insert(ctx context.Context, title, url string) (*models.Bookmark, error) {
	f.mu.Lock()
	f.inserts++
	fn := f.insertFn
	f.mu.Unlock()
	if fn == nil {
		return &models.Bookmark{ID: "new", Title: title, URL: url}, nil
	}
	return fn(ctx, title, url)
}

func (f *fakeClient) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletes++
	fn := f.deleteFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, id)
}

func (f *fakeClient) Subscribe(_ context.Context, resource string, _ models.EventFilter) (feed.Subscription, error) {
	if resource != common.BookmarksResource {
		return nil, fmt.Errorf("unexpected resource %q", resource)
	}
	f.mu.Lock()
	if f.subscribeErr != nil {
		err := f.subscribeErr
		f.mu.Unlock()
		return nil, err
	}
	sub := &fakeSub{id: fmt.Sprintf("s%d", len(f.subs)+1), ch: make(chan models.ChangeEvent), owner: f}
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	f.record("subscribe:" + sub.id)
	return sub, nil
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) sub(i int) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[i]
}

func (f *fakeClient) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeClient) isClosed(s *fakeSub) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return s.closed
}

// ---- helpers ----

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func bm(id string, minutes int) models.Bookmark {
	return models.Bookmark{
		ID:        id,
		Title:     "title " + id,
		URL:       "https://example.com/" + id,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func ids(items []models.Bookmark) []string {
	out := make([]string, 0, len(items))
	for _, b := range items {
		out = append(out, b.ID)
	}
	return out
}

// startStore runs a store over fc and waits for it to become ready.
func startStore(t *testing.T, fc *fakeClient) *Store {
	t.Helper()
	s := NewStore(fc, logging.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("store not ready")
	}
	return s
}

func waitView(t *testing.T, s *Store, cond func(v View) bool) View {
	t.Helper()
	require.Eventually(t, func() bool { return cond(s.View()) }, 2*time.Second, 5*time.Millisecond)
	return s.View()
}

func alice() models.Session { return models.PresentSession("u1", "alice@example.com") }
func bob() models.Session { return models.PresentSession("u2", "bob@example.com") }
