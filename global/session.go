package global

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"CollectBox/tools/errs"
)

// UserSession is the authenticated identity everything else hangs off.
// Tracker and synchronizer instances are bound to one session and torn
// down with it; without a session they are inert.
type UserSession struct {
	UserID string `json:"user_id"`
	Token  string `json:"token,omitempty"`
}

// NewSession derives the session identity from the backend access token.
// The token is parsed unverified: signature verification is the backend's
// job, the client only needs the subject claim to scope its queries and
// subscriptions.
func NewSession(token string) (*UserSession, error) {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	if token == "" {
		return nil, errs.ErrNoSession
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errs.Wrap(err, "parse access token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errs.New("access token has no subject")
	}
	return &UserSession{UserID: sub, Token: token}, nil
}

// NewSessionForUser builds a session from a bare identity. Used by local
// runs and tests where no token round trip exists.
func NewSessionForUser(userID string) *UserSession {
	return &UserSession{UserID: userID}
}
