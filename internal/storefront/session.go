package storefront

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const SessionCookie = "auth"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the login state of one request. It only decides what the UI
// shows; the catalog's create endpoint does not look at it.
type Session struct {
	Authenticated bool
	Email         string
}

// SessionManager checks the demo credentials and issues the signed session
// cookie.
type SessionManager struct {
	tokens   *TokenMaker
	email    string
	passHash []byte
	ttl      time.Duration
	secure   bool
}

func NewSessionManager(secret, email, password string, ttl time.Duration) (*SessionManager, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &SessionManager{
		tokens:   NewTokenMaker(secret),
		email:    strings.ToLower(strings.TrimSpace(email)),
		passHash: hash,
		ttl:      ttl,
	}, nil
}

// SetSecure marks issued cookies Secure; use it behind TLS.
func (m *SessionManager) SetSecure(secure bool) { m.secure = secure }

func (m *SessionManager) Login(w http.ResponseWriter, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(m.email)) == 1
	passOK := bcrypt.CompareHashAndPassword(m.passHash, []byte(password)) == nil
	if !emailOK || !passOK {
		return Session{}, ErrInvalidCredentials
	}

	token, err := m.tokens.New(email, m.ttl)
	if err != nil {
		return Session{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		Expires:  time.Now().Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return Session{Authenticated: true, Email: email}, nil
}

func (m *SessionManager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// FromRequest never fails; a cookie that does not verify is an anonymous
// session.
func (m *SessionManager) FromRequest(r *http.Request) Session {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Session{}
	}
	claims, err := m.tokens.Parse(c.Value)
	if err != nil {
		return Session{}
	}
	return Session{Authenticated: true, Email: claims.Email}
}
