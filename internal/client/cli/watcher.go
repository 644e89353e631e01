package cli

import (
	"context"
)

// StartStatusWatcher prints session changes and new user-visible messages
// until ctx is done.
func (a *App) StartStatusWatcher(ctx context.Context) {
	for {
		select {
		case <-a.store.Updates():
			a.reportChanges()
		case <-ctx.Done():
			return
		}
	}
}

// reportChanges prints what changed since the last call.
func (a *App) reportChanges() {
	v := a.store.View()

	a.seenMu.Lock()
	defer a.seenMu.Unlock()

	user := v.Session.UserID()
	if !a.seenInit || user != a.seenUser {
		switch {
		case v.Session.Present():
			a.println(sessionStyle.Render("Signed in as " + v.Session.Identity.Email))
		case a.seenInit:
			a.println(sessionStyle.Render("Signed out."))
		default:
			a.println("Not signed in. Use login to start.")
		}
		a.seenUser = user
	}

	if v.MessageSeq != a.seenSeq {
		if v.Message != "" {
			a.println(messageStyle.Render("* " + v.Message))
		}
		a.seenSeq = v.MessageSeq
	}
	a.seenInit = true
}
