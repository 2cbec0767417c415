package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestMethodOverride_PostWithPutField_BecomesPut(t *testing.T) {
	mw := NewMethodOverrideMiddleware()

	var gotMethod string
	var gotTitle string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotTitle = r.FormValue("title")
	}))

	form := url.Values{"_method": {"PUT"}, "title": {"updated"}}
	req := httptest.NewRequest(http.MethodPost, "/sessions/abc", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want %q", gotMethod, http.MethodPut)
	}
	// ParseForm後も他のフォーム値が読めること
	if gotTitle != "updated" {
		t.Errorf("title = %q, want %q", gotTitle, "updated")
	}
}

func TestMethodOverride_PostWithDeleteField_BecomesDelete(t *testing.T) {
	mw := NewMethodOverrideMiddleware()

	var gotMethod string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))

	form := url.Values{"_method": {"DELETE"}}
	req := httptest.NewRequest(http.MethodPost, "/sessions/abc", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want %q", gotMethod, http.MethodDelete)
	}
}

func TestMethodOverride_DisallowedTarget_Ignored(t *testing.T) {
	mw := NewMethodOverrideMiddleware()

	tests := []struct {
		name     string
		override string
	}{
		{"GET is not allowed", "GET"},
		{"PATCH is not allowed", "PATCH"},
		{"lowercase is not allowed", "put"},
		{"garbage is ignored", "HIJACK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod string
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
			}))

			form := url.Values{"_method": {tt.override}}
			req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if gotMethod != http.MethodPost {
				t.Errorf("method = %q, want POST to stay POST", gotMethod)
			}
		})
	}
}

func TestMethodOverride_NonPost_Untouched(t *testing.T) {
	mw := NewMethodOverrideMiddleware()

	var gotMethod string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))

	req := httptest.NewRequest(http.MethodGet, "/sessions?_method=DELETE", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want %q", gotMethod, http.MethodGet)
	}
}
