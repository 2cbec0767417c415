package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/sessionbook/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.LoginSession, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.LoginSession, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockLoginRecorder struct {
	logins int
}

func (m *mockLoginRecorder) RecordLogin() { m.logins++ }

// --- compile-time interface checks ---
var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ LoginRecorder = (*mockLoginRecorder)(nil)

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestLogin_RedirectsToOAuthURLWithStateCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{}, &mockLoginRecorder{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}

	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://accounts.google.com/") {
		t.Errorf("redirect location = %q, want Google OAuth URL", loc)
	}

	stateCookie := findCookie(rec.Result().Cookies(), "oauth_state")
	if stateCookie == nil {
		t.Fatal("expected oauth_state cookie to be set")
	}
	if stateCookie.Value == "" {
		t.Error("expected non-empty state value")
	}
	if !stateCookie.HttpOnly {
		t.Error("state cookie should be HttpOnly")
	}

	// リダイレクトURLのstateとCookieのstateが一致すること
	if !strings.Contains(loc, "state="+stateCookie.Value) {
		t.Errorf("redirect URL %q should carry state %q", loc, stateCookie.Value)
	}
}

func TestCallback_Success_SetsSessionCookieAndRedirects(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.LoginSession, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want %q", code, "auth-code")
			}
			return &model.LoginSession{
				ID:        "new-session-id",
				UserID:    "user-1",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	recorder := &mockLoginRecorder{}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400}, recorder)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=state-123", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-123"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("redirect location = %q, want %q", loc, "/dashboard")
	}

	sessionCookie := findCookie(rec.Result().Cookies(), "session_id")
	if sessionCookie == nil {
		t.Fatal("expected session_id cookie to be set")
	}
	if sessionCookie.Value != "new-session-id" {
		t.Errorf("session cookie value = %q, want %q", sessionCookie.Value, "new-session-id")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if sessionCookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("session cookie SameSite = %v, want Lax", sessionCookie.SameSite)
	}

	if recorder.logins != 1 {
		t.Errorf("login metric = %d, want 1", recorder.logins)
	}
}

func TestCallback_StateMismatch_RedirectsWithoutSession(t *testing.T) {
	handleCalled := false
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.LoginSession, error) {
			handleCalled = true
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{}, &mockLoginRecorder{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=evil-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected-state"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if handleCalled {
		t.Error("HandleCallback should not be called on state mismatch")
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect location = %q, want %q", loc, "/")
	}
	if c := findCookie(rec.Result().Cookies(), "session_id"); c != nil {
		t.Error("no session cookie should be set on state mismatch")
	}
}

func TestCallback_ExchangeFailure_NoSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.LoginSession, error) {
			return nil, errors.New("exchange failed")
		},
	}
	recorder := &mockLoginRecorder{}
	h := NewAuthHandler(svc, AuthHandlerConfig{}, recorder)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect location = %q, want %q", loc, "/")
	}
	if c := findCookie(rec.Result().Cookies(), "session_id"); c != nil {
		t.Error("no session cookie should be set when exchange fails")
	}
	if recorder.logins != 0 {
		t.Errorf("login metric = %d, want 0", recorder.logins)
	}
}

func TestCallback_MissingCode_Redirects(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{}, &mockLoginRecorder{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect location = %q, want %q", loc, "/")
	}
}

func TestLogout_DeletesSessionAndClearsCookie(t *testing.T) {
	var loggedOutID string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOutID = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{}, &mockLoginRecorder{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "current-session"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if loggedOutID != "current-session" {
		t.Errorf("logged out session = %q, want %q", loggedOutID, "current-session")
	}

	sessionCookie := findCookie(rec.Result().Cookies(), "session_id")
	if sessionCookie == nil {
		t.Fatal("expected session cookie to be cleared")
	}
	if sessionCookie.MaxAge != -1 {
		t.Errorf("cleared cookie MaxAge = %d, want -1", sessionCookie.MaxAge)
	}

	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect location = %q, want %q", loc, "/")
	}
}

func TestLogout_ServiceFailure_StillClearsCookie(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			return errors.New("db down")
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{}, &mockLoginRecorder{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "current-session"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	sessionCookie := findCookie(rec.Result().Cookies(), "session_id")
	if sessionCookie == nil || sessionCookie.MaxAge != -1 {
		t.Error("session cookie should be cleared even when logout fails")
	}
}
