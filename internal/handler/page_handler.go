package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/sessionbook/internal/middleware"
	"github.com/hitoshi/sessionbook/internal/model"
	"github.com/hitoshi/sessionbook/internal/session"
)

// SessionServiceInterface はページハンドラーが必要とするサービスインターフェース。
// 所有権チェックを要する操作は、認証済みの呼び出し元IDを明示的に受け取る。
type SessionServiceInterface interface {
	ListDashboard(ctx context.Context, callerID model.UserID) ([]*model.Session, error)
	ListPublic(ctx context.Context) ([]*model.SessionWithOwner, error)
	ListPublicByUser(ctx context.Context, targetID model.UserID) ([]*model.SessionWithOwner, error)
	Get(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error)
	Create(ctx context.Context, callerID model.UserID, input session.Input) (*model.Session, error)
	GetForEdit(ctx context.Context, callerID model.UserID, id model.SessionID) (*model.Session, error)
	Update(ctx context.Context, callerID model.UserID, id model.SessionID, input session.Input) error
	Delete(ctx context.Context, callerID model.UserID, id model.SessionID) error
}

// ViewRenderer はページ名とデータからHTMLを描画する。
// view.Rendererの部分集合として定義する。
type ViewRenderer interface {
	Render(w http.ResponseWriter, statusCode int, name string, data any)
}

// SessionMetricsRecorder はセッションレコード操作をメトリクスに記録する。
// metrics.Collectorの部分集合として定義する。
type SessionMetricsRecorder interface {
	RecordSessionCreated()
	RecordSessionUpdated()
	RecordSessionDeleted()
}

// PageHandler はサーバーレンダリングされる全ページのHTTPハンドラー。
type PageHandler struct {
	service SessionServiceInterface
	view    ViewRenderer
	metrics SessionMetricsRecorder
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(service SessionServiceInterface, view ViewRenderer, metrics SessionMetricsRecorder) *PageHandler {
	return &PageHandler{
		service: service,
		view:    view,
		metrics: metrics,
	}
}

// layoutData は全ページ共通のレイアウト用データ。
type layoutData struct {
	CSRFToken string
}

// Landing はランディング/ログインページを描画する。
// GET /（ゲスト専用）
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, http.StatusOK, "login", nil)
}

// Dashboard は呼び出し元が所有するセッションレコードの一覧を描画する。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request, user *model.User) {
	sessions, err := h.service.ListDashboard(r.Context(), user.ID)
	if err != nil {
		h.renderStoreFault(w, r, err)
		return
	}

	h.view.Render(w, http.StatusOK, "dashboard", struct {
		layoutData
		FirstName string
		Sessions  []*model.Session
	}{
		layoutData: h.layout(r),
		FirstName:  user.FirstName,
		Sessions:   sessions,
	})
}

// ListPublic は公開セッションレコードの一覧を描画する。
// GET /sessions
func (h *PageHandler) ListPublic(w http.ResponseWriter, r *http.Request, user *model.User) {
	sessions, err := h.service.ListPublic(r.Context())
	if err != nil {
		h.renderStoreFault(w, r, err)
		return
	}

	h.renderSessionList(w, r, sessions)
}

// ListUserPublic は指定ユーザーの公開セッションレコードの一覧を描画する。
// GET /sessions/user/{userId}
func (h *PageHandler) ListUserPublic(w http.ResponseWriter, r *http.Request, user *model.User) {
	targetID := model.UserID(chi.URLParam(r, "userId"))

	sessions, err := h.service.ListPublicByUser(r.Context(), targetID)
	if err != nil {
		h.renderStoreFault(w, r, err)
		return
	}

	h.renderSessionList(w, r, sessions)
}

// Show は単一のセッションレコードを描画する。
// GET /sessions/{id}
func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request, user *model.User) {
	id := model.SessionID(chi.URLParam(r, "id"))

	s, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.view.Render(w, http.StatusOK, "sessions/show", struct {
		layoutData
		Session *model.SessionWithOwner
	}{
		layoutData: h.layout(r),
		Session:    s,
	})
}

// ShowAdd はセッションレコード作成フォームを描画する。
// GET /sessions/add
func (h *PageHandler) ShowAdd(w http.ResponseWriter, r *http.Request, user *model.User) {
	h.view.Render(w, http.StatusOK, "sessions/add", struct {
		layoutData
	}{
		layoutData: h.layout(r),
	})
}

// Create はフォーム送信からセッションレコードを作成する。
// 所有者は常に認証済みの呼び出し元になる。フォームにuserフィールドが
// 含まれていても無視される。
// POST /sessions
func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request, user *model.User) {
	input := session.Input{
		Title:  r.FormValue("title"),
		Body:   r.FormValue("body"),
		Status: r.FormValue("status"),
	}

	if _, err := h.service.Create(r.Context(), user.ID, input); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.metrics.RecordSessionCreated()
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ShowEdit はセッションレコード編集フォームを描画する。
// 所有者でない場合は一覧へリダイレクトする。
// GET /sessions/edit/{id}
func (h *PageHandler) ShowEdit(w http.ResponseWriter, r *http.Request, user *model.User) {
	id := model.SessionID(chi.URLParam(r, "id"))

	s, err := h.service.GetForEdit(r.Context(), user.ID, id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.view.Render(w, http.StatusOK, "sessions/edit", struct {
		layoutData
		Session *model.Session
	}{
		layoutData: h.layout(r),
		Session:    s,
	})
}

// Update はセッションレコードを更新する。
// 所有権は保存前に再検証される。所有者でない場合は一覧へリダイレクトする。
// PUT /sessions/{id}
func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request, user *model.User) {
	id := model.SessionID(chi.URLParam(r, "id"))

	input := session.Input{
		Title:  r.FormValue("title"),
		Body:   r.FormValue("body"),
		Status: r.FormValue("status"),
	}

	if err := h.service.Update(r.Context(), user.ID, id, input); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.metrics.RecordSessionUpdated()
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Delete はセッションレコードを削除する。
// 所有権は削除前に再検証される。所有者でない場合は一覧へリダイレクトする。
// DELETE /sessions/{id}
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request, user *model.User) {
	id := model.SessionID(chi.URLParam(r, "id"))

	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.metrics.RecordSessionDeleted()
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// renderSessionList は所有者情報付きセッション一覧を描画する。
func (h *PageHandler) renderSessionList(w http.ResponseWriter, r *http.Request, sessions []*model.SessionWithOwner) {
	h.view.Render(w, http.StatusOK, "sessions/index", struct {
		layoutData
		Sessions []*model.SessionWithOwner
	}{
		layoutData: h.layout(r),
		Sessions:   sessions,
	})
}

// renderServiceError はサービス層のエラーを結果ページに対応付ける。
// NotFound → 404ビュー、所有者不一致 → 一覧へリダイレクト、
// それ以外（ストア障害・入力不正）→ 500ビュー。
func (h *PageHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		h.view.Render(w, http.StatusNotFound, "error/404", struct {
			layoutData
		}{layoutData: h.layout(r)})
	case errors.Is(err, session.ErrNotOwner):
		http.Redirect(w, r, "/sessions", http.StatusSeeOther)
	default:
		h.renderStoreFault(w, r, err)
	}
}

// renderStoreFault はストア障害をログに記録し、汎用の500ビューを描画する。
// ログには捕捉した実際のエラーを記録する。
func (h *PageHandler) renderStoreFault(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	h.view.Render(w, http.StatusInternalServerError, "error/500", struct {
		layoutData
	}{layoutData: h.layout(r)})
}

// layout は全ページ共通のレイアウト用データを組み立てる。
func (h *PageHandler) layout(r *http.Request) layoutData {
	return layoutData{
		CSRFToken: middleware.CSRFTokenFromRequest(r),
	}
}
