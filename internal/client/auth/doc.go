// Package auth owns the client's session: it restores persisted tokens,
// runs the browser-based OAuth sign-in against the backend's auth endpoint,
// refreshes expired access tokens and publishes every session transition on
// a channel.
//
// Sign-in is a redirect flow. SignIn starts a local callback listener and
// hands the provider URL to an Opener; the provider eventually redirects the
// browser to GET /auth/callback with the issued tokens. Tokens arriving in
// the URL fragment are moved into the query string by a tiny page served on
// the same path.
package auth
