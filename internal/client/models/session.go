package models

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	UserID string
	Email  string
}

// Session is either absent (Identity == nil) or present with an identity.
type Session struct {
	Identity *Identity
}

// Present reports whether s carries an identity.
func (s Session) Present() bool {
	return s.Identity != nil
}

// UserID returns the identity's user id, or "" for an absent session.
func (s Session) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.UserID
}

// AbsentSession is the signed-out state.
func AbsentSession() Session {
	return Session{}
}

// PresentSession returns a session for the given identity.
func PresentSession(userID, email string) Session {
	return Session{Identity: &Identity{UserID: userID, Email: email}}
}
