// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/sessionbook/internal/model"
)

const sessionCookieName = "session_id"

// AuthedHandler は認証済みユーザーを明示的なパラメータとして受け取るハンドラー。
// 認証済みユーザーをコンテキストに埋め込む代わりにこの形を使うことで、
// 所有権チェックに渡る呼び出し元の特定経路を監査可能にする。
type AuthedHandler func(w http.ResponseWriter, r *http.Request, user *model.User)

// CurrentUserResolver はログインセッションIDから現在のユーザーを解決する。
// auth.Serviceの部分集合として定義する。
type CurrentUserResolver interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// Guard はルートアクセスを認証状態で制御する2つの述語を提供する。
type Guard struct {
	resolver CurrentUserResolver
}

// NewGuard はGuardを生成する。
func NewGuard(resolver CurrentUserResolver) *Guard {
	return &Guard{resolver: resolver}
}

// RequireAuth は認証済みリクエストのみを通すハンドラーを返す。
// 未認証または認証状態が判定できない場合はランディングページへリダイレクトする。
func (g *Guard) RequireAuth(next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := g.currentUser(r)
		if user == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next(w, r, user)
	}
}

// RequireGuest は未認証リクエストのみを通すハンドラーを返す。
// ログイン済みユーザーはダッシュボードへリダイレクトする。
// ランディング/ログインページ専用。
func (g *Guard) RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.currentUser(r) != nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		next(w, r)
	}
}

// currentUser はCookieのログインセッションからユーザーを解決する。
// Cookieなし・セッション無効・解決エラーのいずれもnilを返す（常に拒否側に倒す）。
func (g *Guard) currentUser(r *http.Request) *model.User {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	user, err := g.resolver.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to resolve current user",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}
