package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/auth"
	"github.com/dmitrijs2005/gophmarks/internal/client/config"
	"github.com/dmitrijs2005/gophmarks/internal/client/services"
)

// bookmarkStore is the part of *services.Store the CLI drives.
type bookmarkStore interface {
	Ready() <-chan struct{}
	Updates() <-chan struct{}
	View() services.View
	Create(ctx context.Context, title, url string) error
	Delete(ctx context.Context, id string) error
	Reload(ctx context.Context) error
	SignIn(ctx context.Context, provider string) error
	SignOut(ctx context.Context) error
}

type App struct {
	config *config.Config
	store  bookmarkStore
	reader *bufio.Reader
	now    func() time.Time

	// out is shared by the REPL and the status watcher.
	outMu sync.Mutex
	out   io.Writer

	// last state reported by the watcher
	seenMu   sync.Mutex
	seenUser string
	seenSeq  uint64
	seenInit bool
}

func NewApp(c *config.Config, store bookmarkStore, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		store:  store,
		reader: bufio.NewReader(in),
		out:    out,
		now:    time.Now,
	}
}

// PrintOpener returns an auth.Opener that asks the user to open the sign-in
// URL themselves.
func PrintOpener(w io.Writer) auth.Opener {
	return func(url string) error {
		_, err := fmt.Fprintf(w, "Open this URL in your browser to sign in:\n  %s\n", url)
		return err
	}
}

// Run waits for the store to resolve the session and then runs the REPL
// until the user exits, input ends or ctx is done.
func (a *App) Run(ctx context.Context) error {
	select {
	case <-a.store.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	a.println("gophmarks (type 'help' for commands)")
	a.reportChanges()

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartStatusWatcher(wctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.getStatus, a.reader, isTerminal())
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) isLoggedIn() bool {
	return a.store.View().Session.Present()
}

func (a *App) getStatus() string {
	v := a.store.View()
	if !v.Session.Present() {
		return ""
	}
	return fmt.Sprintf(" (%s)", v.Session.Identity.Email)
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}
