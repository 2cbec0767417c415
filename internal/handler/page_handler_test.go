package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/sessionbook/internal/model"
	"github.com/hitoshi/sessionbook/internal/repository"
	"github.com/hitoshi/sessionbook/internal/security"
	"github.com/hitoshi/sessionbook/internal/session"
)

// --- モック定義 ---

type mockSessionService struct {
	listDashboardFn    func(ctx context.Context, callerID model.UserID) ([]*model.Session, error)
	listPublicFn       func(ctx context.Context) ([]*model.SessionWithOwner, error)
	listPublicByUserFn func(ctx context.Context, targetID model.UserID) ([]*model.SessionWithOwner, error)
	getFn              func(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error)
	createFn           func(ctx context.Context, callerID model.UserID, input session.Input) (*model.Session, error)
	getForEditFn       func(ctx context.Context, callerID model.UserID, id model.SessionID) (*model.Session, error)
	updateFn           func(ctx context.Context, callerID model.UserID, id model.SessionID, input session.Input) error
	deleteFn           func(ctx context.Context, callerID model.UserID, id model.SessionID) error
}

func (m *mockSessionService) ListDashboard(ctx context.Context, callerID model.UserID) ([]*model.Session, error) {
	if m.listDashboardFn != nil {
		return m.listDashboardFn(ctx, callerID)
	}
	return nil, nil
}

func (m *mockSessionService) ListPublic(ctx context.Context) ([]*model.SessionWithOwner, error) {
	if m.listPublicFn != nil {
		return m.listPublicFn(ctx)
	}
	return nil, nil
}

func (m *mockSessionService) ListPublicByUser(ctx context.Context, targetID model.UserID) ([]*model.SessionWithOwner, error) {
	if m.listPublicByUserFn != nil {
		return m.listPublicByUserFn(ctx, targetID)
	}
	return nil, nil
}

func (m *mockSessionService) Get(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionService) Create(ctx context.Context, callerID model.UserID, input session.Input) (*model.Session, error) {
	if m.createFn != nil {
		return m.createFn(ctx, callerID, input)
	}
	return &model.Session{}, nil
}

func (m *mockSessionService) GetForEdit(ctx context.Context, callerID model.UserID, id model.SessionID) (*model.Session, error) {
	if m.getForEditFn != nil {
		return m.getForEditFn(ctx, callerID, id)
	}
	return nil, nil
}

func (m *mockSessionService) Update(ctx context.Context, callerID model.UserID, id model.SessionID, input session.Input) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, callerID, id, input)
	}
	return nil
}

func (m *mockSessionService) Delete(ctx context.Context, callerID model.UserID, id model.SessionID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, callerID, id)
	}
	return nil
}

type mockView struct {
	renderedName   string
	renderedStatus int
	renderedData   any
}

func (m *mockView) Render(w http.ResponseWriter, statusCode int, name string, data any) {
	m.renderedName = name
	m.renderedStatus = statusCode
	m.renderedData = data
	w.WriteHeader(statusCode)
}

type mockSessionMetrics struct {
	created int
	updated int
	deleted int
}

func (m *mockSessionMetrics) RecordSessionCreated() { m.created++ }
func (m *mockSessionMetrics) RecordSessionUpdated() { m.updated++ }
func (m *mockSessionMetrics) RecordSessionDeleted() { m.deleted++ }

// --- compile-time interface checks ---
var _ SessionServiceInterface = (*mockSessionService)(nil)
var _ ViewRenderer = (*mockView)(nil)
var _ SessionMetricsRecorder = (*mockSessionMetrics)(nil)

// withURLParam はchiのURLパラメータをリクエストコンテキストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- テスト ---

func TestDashboard_RendersOwnSessions(t *testing.T) {
	user := &model.User{ID: "user-1", FirstName: "Taro"}

	var queriedID model.UserID
	svc := &mockSessionService{
		listDashboardFn: func(ctx context.Context, callerID model.UserID) ([]*model.Session, error) {
			queriedID = callerID
			return []*model.Session{{ID: "rec-1", Title: "Mine", UserID: callerID}}, nil
		},
	}
	view := &mockView{}
	h := NewPageHandler(svc, view, &mockSessionMetrics{})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, req, user)

	if queriedID != user.ID {
		t.Errorf("queried owner = %q, want %q", queriedID, user.ID)
	}
	if view.renderedName != "dashboard" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "dashboard")
	}
	if view.renderedStatus != http.StatusOK {
		t.Errorf("status = %d, want %d", view.renderedStatus, http.StatusOK)
	}
}

func TestDashboard_StoreFaultRenders500View(t *testing.T) {
	svc := &mockSessionService{
		listDashboardFn: func(ctx context.Context, callerID model.UserID) ([]*model.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	view := &mockView{}
	h := NewPageHandler(svc, view, &mockSessionMetrics{})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, req, &model.User{ID: "user-1"})

	if view.renderedName != "error/500" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "error/500")
	}
	if view.renderedStatus != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", view.renderedStatus, http.StatusInternalServerError)
	}
}

func TestShow_MissingRecordRenders404View(t *testing.T) {
	svc := &mockSessionService{
		getFn: func(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error) {
			return nil, session.ErrNotFound
		},
	}
	view := &mockView{}
	h := NewPageHandler(svc, view, &mockSessionMetrics{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/sessions/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	h.Show(rec, req, &model.User{ID: "user-1"})

	if view.renderedName != "error/404" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "error/404")
	}
	if view.renderedStatus != http.StatusNotFound {
		t.Errorf("status = %d, want %d", view.renderedStatus, http.StatusNotFound)
	}
}

// trackingSessionRepo は呼び出しの有無だけを記録する最小実装。
type trackingSessionRepo struct {
	queried bool
}

func (r *trackingSessionRepo) ListByOwner(ctx context.Context, ownerID model.UserID) ([]*model.Session, error) {
	r.queried = true
	return nil, nil
}

func (r *trackingSessionRepo) ListPublic(ctx context.Context) ([]*model.SessionWithOwner, error) {
	r.queried = true
	return nil, nil
}

func (r *trackingSessionRepo) ListPublicByOwner(ctx context.Context, ownerID model.UserID) ([]*model.SessionWithOwner, error) {
	r.queried = true
	return nil, nil
}

func (r *trackingSessionRepo) FindByID(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error) {
	r.queried = true
	return nil, nil
}

func (r *trackingSessionRepo) FindOwned(ctx context.Context, id model.SessionID) (*model.Session, error) {
	r.queried = true
	return nil, nil
}

func (r *trackingSessionRepo) Create(ctx context.Context, s *model.Session) error {
	r.queried = true
	return nil
}

func (r *trackingSessionRepo) UpdateOwned(ctx context.Context, id model.SessionID, ownerID model.UserID, title, body string, status model.Visibility) (bool, error) {
	r.queried = true
	return false, nil
}

func (r *trackingSessionRepo) DeleteOwned(ctx context.Context, id model.SessionID, ownerID model.UserID) (bool, error) {
	r.queried = true
	return false, nil
}

var _ repository.SessionRepository = (*trackingSessionRepo)(nil)

// パスに紛れ込んだUUIDでないIDがストア障害扱いにならないこと。
func TestShow_MalformedIDRenders404View(t *testing.T) {
	repo := &trackingSessionRepo{}
	svc := session.NewService(repo, security.NewBodySanitizer())
	view := &mockView{}
	h := NewPageHandler(svc, view, &mockSessionMetrics{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/sessions/abc", nil), "id", "abc")
	rec := httptest.NewRecorder()
	h.Show(rec, req, &model.User{ID: "user-1"})

	if view.renderedName != "error/404" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "error/404")
	}
	if view.renderedStatus != http.StatusNotFound {
		t.Errorf("status = %d, want %d", view.renderedStatus, http.StatusNotFound)
	}
	if repo.queried {
		t.Error("repository was queried for a malformed id")
	}
}

func TestCreate_OwnerComesFromAuthenticatedUser(t *testing.T) {
	user := &model.User{ID: "caller-1"}

	var gotCaller model.UserID
	var gotInput session.Input
	svc := &mockSessionService{
		createFn: func(ctx context.Context, callerID model.UserID, input session.Input) (*model.Session, error) {
			gotCaller = callerID
			gotInput = input
			return &model.Session{ID: "new-rec", UserID: callerID}, nil
		},
	}
	metrics := &mockSessionMetrics{}
	h := NewPageHandler(svc, &mockView{}, metrics)

	// フォームに別ユーザーのuserフィールドを混ぜても無視されること
	form := url.Values{
		"title":  {"My session"},
		"body":   {"<p>notes</p>"},
		"status": {"private"},
		"user":   {"attacker-999"},
	}
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Create(rec, req, user)

	if gotCaller != user.ID {
		t.Errorf("create caller = %q, want %q", gotCaller, user.ID)
	}
	if gotInput.Title != "My session" {
		t.Errorf("input title = %q, want %q", gotInput.Title, "My session")
	}
	if gotInput.Status != "private" {
		t.Errorf("input status = %q, want %q", gotInput.Status, "private")
	}

	// 成功時はダッシュボードへリダイレクト
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("redirect location = %q, want %q", loc, "/dashboard")
	}
	if metrics.created != 1 {
		t.Errorf("created metric = %d, want 1", metrics.created)
	}
}

func TestCreate_InvalidInputRenders500View(t *testing.T) {
	svc := &mockSessionService{
		createFn: func(ctx context.Context, callerID model.UserID, input session.Input) (*model.Session, error) {
			return nil, session.ErrInvalidInput
		},
	}
	view := &mockView{}
	metrics := &mockSessionMetrics{}
	h := NewPageHandler(svc, view, metrics)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("title="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Create(rec, req, &model.User{ID: "user-1"})

	if view.renderedName != "error/500" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "error/500")
	}
	if metrics.created != 0 {
		t.Errorf("created metric = %d, want 0", metrics.created)
	}
}

func TestUpdate_NonOwnerRedirectsToList(t *testing.T) {
	svc := &mockSessionService{
		updateFn: func(ctx context.Context, callerID model.UserID, id model.SessionID, input session.Input) error {
			return session.ErrNotOwner
		},
	}
	metrics := &mockSessionMetrics{}
	h := NewPageHandler(svc, &mockView{}, metrics)

	form := url.Values{"title": {"hijack"}}
	req := httptest.NewRequest(http.MethodPut, "/sessions/rec-1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = withURLParam(req, "id", "rec-1")
	rec := httptest.NewRecorder()
	h.Update(rec, req, &model.User{ID: "attacker-2"})

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/sessions" {
		t.Errorf("redirect location = %q, want %q", loc, "/sessions")
	}
	if metrics.updated != 0 {
		t.Errorf("updated metric = %d, want 0", metrics.updated)
	}
}

func TestUpdate_SuccessRedirectsToDashboard(t *testing.T) {
	var gotID model.SessionID
	svc := &mockSessionService{
		updateFn: func(ctx context.Context, callerID model.UserID, id model.SessionID, input session.Input) error {
			gotID = id
			return nil
		},
	}
	metrics := &mockSessionMetrics{}
	h := NewPageHandler(svc, &mockView{}, metrics)

	form := url.Values{"title": {"updated"}, "status": {"public"}}
	req := httptest.NewRequest(http.MethodPut, "/sessions/rec-1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = withURLParam(req, "id", "rec-1")
	rec := httptest.NewRecorder()
	h.Update(rec, req, &model.User{ID: "owner-1"})

	if gotID != "rec-1" {
		t.Errorf("updated ID = %q, want %q", gotID, "rec-1")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("redirect location = %q, want %q", loc, "/dashboard")
	}
	if metrics.updated != 1 {
		t.Errorf("updated metric = %d, want 1", metrics.updated)
	}
}

func TestDelete_MissingRecordRenders404View(t *testing.T) {
	svc := &mockSessionService{
		deleteFn: func(ctx context.Context, callerID model.UserID, id model.SessionID) error {
			return session.ErrNotFound
		},
	}
	view := &mockView{}
	metrics := &mockSessionMetrics{}
	h := NewPageHandler(svc, view, metrics)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/sessions/gone", nil), "id", "gone")
	rec := httptest.NewRecorder()
	h.Delete(rec, req, &model.User{ID: "user-1"})

	if view.renderedName != "error/404" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "error/404")
	}
	if metrics.deleted != 0 {
		t.Errorf("deleted metric = %d, want 0", metrics.deleted)
	}
}

func TestDelete_SuccessRecordsMetricAndRedirects(t *testing.T) {
	svc := &mockSessionService{}
	metrics := &mockSessionMetrics{}
	h := NewPageHandler(svc, &mockView{}, metrics)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/sessions/rec-1", nil), "id", "rec-1")
	rec := httptest.NewRecorder()
	h.Delete(rec, req, &model.User{ID: "owner-1"})

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if metrics.deleted != 1 {
		t.Errorf("deleted metric = %d, want 1", metrics.deleted)
	}
}

func TestListUserPublic_PassesTargetUserID(t *testing.T) {
	var gotTarget model.UserID
	svc := &mockSessionService{
		listPublicByUserFn: func(ctx context.Context, targetID model.UserID) ([]*model.SessionWithOwner, error) {
			gotTarget = targetID
			return nil, nil
		},
	}
	view := &mockView{}
	h := NewPageHandler(svc, view, &mockSessionMetrics{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/sessions/user/target-7", nil), "userId", "target-7")
	rec := httptest.NewRecorder()
	h.ListUserPublic(rec, req, &model.User{ID: "viewer-1"})

	if gotTarget != "target-7" {
		t.Errorf("target user = %q, want %q", gotTarget, "target-7")
	}
	if view.renderedName != "sessions/index" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "sessions/index")
	}
}

func TestLanding_RendersLoginPage(t *testing.T) {
	view := &mockView{}
	h := NewPageHandler(&mockSessionService{}, view, &mockSessionMetrics{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Landing(rec, req)

	if view.renderedName != "login" {
		t.Errorf("rendered page = %q, want %q", view.renderedName, "login")
	}
}
