package storefront_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/masad40/next-sc/internal/storefront"
)

func newSessions(t *testing.T) *storefront.SessionManager {
	t.Helper()

	m, err := storefront.NewSessionManager("test-secret", "test@example.com", "123456", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return m
}

func TestSession_LoginRoundTrip(t *testing.T) {
	m := newSessions(t)

	rec := httptest.NewRecorder()
	sess, err := m.Login(rec, " Test@Example.com ", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !sess.Authenticated || sess.Email != "test@example.com" {
		t.Fatalf("sess=%+v", sess)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies=%d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "auth" || c.Path != "/" || c.SameSite != http.SameSiteStrictMode || !c.HttpOnly {
		t.Fatalf("cookie=%+v", c)
	}
	if c.MaxAge != 7*24*60*60 {
		t.Fatalf("max-age=%d", c.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.AddCookie(c)
	if got := m.FromRequest(req); !got.Authenticated || got.Email != "test@example.com" {
		t.Fatalf("FromRequest=%+v", got)
	}
}

func TestSession_BadCredentials(t *testing.T) {
	m := newSessions(t)

	for _, tc := range [][2]string{{"test@example.com", "wrong"}, {"other@example.com", "123456"}, {"", ""}} {
		rec := httptest.NewRecorder()
		if _, err := m.Login(rec, tc[0], tc[1]); !errors.Is(err, storefront.ErrInvalidCredentials) {
			t.Fatalf("%v: err=%v", tc, err)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("%v: cookie set on failure", tc)
		}
	}
}

func TestSession_ForgedCookieIsAnonymous(t *testing.T) {
	m := newSessions(t)
	other, _ := storefront.NewSessionManager("another-secret", "test@example.com", "123456", time.Hour)

	rec := httptest.NewRecorder()
	if _, err := other.Login(rec, "test@example.com", "123456"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	for _, c := range []*http.Cookie{
		{Name: "auth", Value: "true"},
		rec.Result().Cookies()[0],
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(c)
		if got := m.FromRequest(req); got.Authenticated {
			t.Fatalf("cookie %q accepted", c.Value)
		}
	}
}

func TestSession_Logout(t *testing.T) {
	m := newSessions(t)

	rec := httptest.NewRecorder()
	m.Logout(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "auth" || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies=%+v", cookies)
	}
}
