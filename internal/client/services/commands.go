package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophmarks/internal/common"
)

// NormalizeURL trims u and prefixes https:// unless it already starts with
// http:// or https:// (in any letter case).
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return "https://" + u
}

// PrepareBookmark validates create input and returns the trimmed title and
// the normalized URL. Both must be non-empty and within the length limits.
func PrepareBookmark(title, rawURL string) (string, string, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)

	switch {
	case title == "" && rawURL == "":
		return "", "", fmt.Errorf("%w: title and URL are required", common.ErrValidation)
	case title == "":
		return "", "", fmt.Errorf("%w: title is required", common.ErrValidation)
	case rawURL == "":
		return "", "", fmt.Errorf("%w: URL is required", common.ErrValidation)
	case utf8.RuneCountInString(title) > common.MaxTitleLength:
		return "", "", fmt.Errorf("%w: title is longer than %d characters", common.ErrValidation, common.MaxTitleLength)
	}

	u := NormalizeURL(rawURL)
	if utf8.RuneCountInString(u) > common.MaxURLLength {
		return "", "", fmt.Errorf("%w: URL is longer than %d characters", common.ErrValidation, common.MaxURLLength)
	}
	return title, u, nil
}

// Create validates the input and inserts a bookmark for the current
// identity. The list itself only changes when the feed reports the insert.
// On success the form is cleared; on failure it keeps the submitted values
// and the error becomes the message.
func (s *Store) Create(ctx context.Context, title, url string) error {
	form := Form{Title: title, URL: url}

	t, u, err := PrepareBookmark(title, url)
	if err == nil && !s.Session().Present() {
		err = common.ErrNoSession
	}
	if err != nil {
		s.post(ctx, createResult{form: form, err: err})
		return err
	}

	rctx, cancel := s.withTimeout(ctx)
	created, err := s.client.Insert(rctx, t, u)
	cancel()
	if err != nil {
		s.logger.Error(ctx, "create failed", "err", err)
	} else {
		s.logger.Info(ctx, "bookmark created", "id", created.ID)
	}

	s.post(ctx, createResult{form: form, err: err})
	return err
}

// Delete removes the bookmark with id. The record stays visible until the
// feed reports the removal.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	var err error
	switch {
	case id == "":
		err = fmt.Errorf("%w: id is required", common.ErrValidation)
	case !s.Session().Present():
		err = common.ErrNoSession
	default:
		rctx, cancel := s.withTimeout(ctx)
		err = s.client.Delete(rctx, id)
		cancel()
	}

	if err != nil {
		s.logger.Error(ctx, "delete failed", "id", id, "err", err)
	}
	s.post(ctx, deleteResult{id: id, err: err})
	return err
}

// Reload fetches a fresh snapshot. The result is applied only if the session
// it was requested for is still current when it arrives.
func (s *Store) Reload(ctx context.Context) error {
	gen, present, ok := s.generation(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrStopped
	}
	if !present {
		s.post(ctx, notice{text: userMessage("reload", common.ErrNoSession)})
		return common.ErrNoSession
	}

	items, err := s.loader.Load(ctx)
	s.post(ctx, snapshotResult{gen: gen, items: items, err: err})
	return err
}

// generation asks the writer for the current session generation.
func (s *Store) generation(ctx context.Context) (gen uint64, present bool, ok bool) {
	ch := make(chan genReply, 1)
	s.post(ctx, genQuery{reply: ch})
	select {
	case r := <-ch:
		return r.gen, r.present, true
	default:
		return 0, false, false
	}
}

type genQuery struct {
	reply chan<- genReply
}

type genReply struct {
	gen     uint64
	present bool
}

// SignIn starts the provider redirect flow. The session changes later, when
// the provider calls back.
func (s *Store) SignIn(ctx context.Context, provider string) error {
	if err := s.client.SignIn(ctx, provider, ""); err != nil {
		s.logger.Error(ctx, "sign-in failed", "provider", provider, "err", err)
		s.post(ctx, notice{text: userMessage("sign in", err)})
		return err
	}
	s.post(ctx, notice{text: "Waiting for sign-in to complete in the browser..."})
	return nil
}

func (s *Store) SignOut(ctx context.Context) error {
	if err := s.client.SignOut(ctx); err != nil {
		s.logger.Error(ctx, "sign-out failed", "err", err)
		s.post(ctx, notice{text: userMessage("sign out", err)})
		return err
	}
	s.post(ctx, notice{text: "Signed out."})
	return nil
}

// userMessage turns err into the single line shown to the user.
func userMessage(op string, err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return err.Error()
	case errors.Is(err, common.ErrNoSession):
		return "Not signed in. Use login first."
	case errors.Is(err, common.ErrUnauthorized):
		return op + " failed: not authorized"
	case errors.Is(err, common.ErrUnavailable):
		return op + " failed: backend unavailable, try again"
	default:
		return op + " failed: " + err.Error()
	}
}
