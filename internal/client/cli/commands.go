package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophmarks/internal/common"
)

func (a *App) Login(ctx context.Context, provider string) error {
	if a.isLoggedIn() {
		a.println("Already signed in. Use logout first.")
		return nil
	}
	if provider == "" {
		provider = a.config.Provider
	}
	return a.store.SignIn(ctx, provider)
}

func (a *App) Logout(ctx context.Context) error {
	return a.store.SignOut(ctx)
}

func (a *App) WhoAmI(context.Context) error {
	s := a.store.View().Session
	if !s.Present() {
		a.println("Not signed in.")
		return nil
	}
	a.printf("%s (user id %s)\n", s.Identity.Email, s.Identity.UserID)
	return nil
}

func (a *App) List(context.Context) error {
	v := a.store.View()
	if !v.Session.Present() {
		a.println("Not signed in. Use login first.")
		return common.ErrNoSession
	}
	a.println(renderList(v.Bookmarks, a.now()))
	return nil
}

// Add creates a bookmark. With two or more args the last one is the URL and
// the rest form the title; with one arg it is the URL. Missing fields are
// prompted for, offering the values kept from a failed attempt.
func (a *App) Add(ctx context.Context, args []string) error {
	var title, url string
	switch {
	case len(args) >= 2:
		title = strings.Join(args[:len(args)-1], " ")
		url = args[len(args)-1]
	default:
		form := a.store.View().Form
		if len(args) == 1 {
			url = args[0]
		}

		var err error
		if title, err = GetTextWithDefault(a.reader, "Title", form.Title, a.out); err != nil {
			return err
		}
		if url == "" {
			if url, err = GetTextWithDefault(a.reader, "URL", form.URL, a.out); err != nil {
				return err
			}
		}
	}

	if err := a.store.Create(ctx, title, url); err != nil {
		return err
	}
	a.println("Saved.")
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	a.println("Deleted.")
	return nil
}

func (a *App) Reload(ctx context.Context) error {
	if err := a.store.Reload(ctx); err != nil {
		return err
	}
	a.printf("Loaded %d bookmarks.\n", len(a.store.View().Bookmarks))
	return nil
}
