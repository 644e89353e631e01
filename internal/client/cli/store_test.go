package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/config"
	"github.com/dmitrijs2005/gophmarks/internal/client/feed"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/client/services"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleSub struct {
	ch chan models.ChangeEvent
}

func (s *idleSub) ID() string                        { return "sub-1" }
func (s *idleSub) Events() <-chan models.ChangeEvent { return s.ch }
func (s *idleSub) Err() error                        { return nil }
func (s *idleSub) Close() error                      { return nil }

// denyingClient is signed in but every delete is refused by the backend.
type denyingClient struct{}

func (denyingClient) ResolveSession(context.Context) (models.Session, error) {
	return models.PresentSession("u1", "alice@example.com"), nil
}
func (denyingClient) Transitions() <-chan models.Session          { return nil }
func (denyingClient) SignIn(context.Context, string, string) error { return nil }
func (denyingClient) SignOut(context.Context) error                { return nil }
func (denyingClient) List(context.Context) ([]models.Bookmark, error) {
	return []models.Bookmark{{ID: "42", Title: "Go", URL: "https://go.dev", CreatedAt: time.Now()}}, nil
}
func (denyingClient) Insert(context.Context, string, string) (*models.Bookmark, error) {
	return nil, common.ErrUnavailable
}
func (denyingClient) Delete(context.Context, string) error { return common.ErrUnauthorized }
func (denyingClient) Subscribe(context.Context, string, models.EventFilter) (feed.Subscription, error) {
	return &idleSub{ch: make(chan models.ChangeEvent)}, nil
}
func (denyingClient) Close() error { return nil }

func startRealStore(t *testing.T) *services.Store {
	t.Helper()
	store := services.NewStore(denyingClient{}, logging.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = store.Run(ctx) }()

	select {
	case <-store.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("store not ready")
	}
	return store
}

func TestApp_RepeatedFailureIsReportedEachTime(t *testing.T) {
	store := startRealStore(t)

	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	a := NewApp(cfg, store, strings.NewReader(""), &out)
	a.reportChanges()

	ctx := context.Background()
	for range 2 {
		require.True(t, dispatch(ctx, a, "delete", []string{"42"}))
		a.reportChanges()
	}

	assert.Equal(t, 2, strings.Count(out.String(), "delete failed: not authorized"))
	assert.NotContains(t, out.String(), "Deleted.")
}

func TestApp_RepeatedValidationErrorIsReportedEachTime(t *testing.T) {
	store := startRealStore(t)

	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	a := NewApp(cfg, store, strings.NewReader(""), &out)
	a.reportChanges()

	ctx := context.Background()
	for range 2 {
		require.True(t, dispatch(ctx, a, "add", []string{"   ", "go.dev"}))
		a.reportChanges()
	}

	assert.Equal(t, 2, strings.Count(out.String(), "title is required"))
}
