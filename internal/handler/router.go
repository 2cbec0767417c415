package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/sessionbook/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Guard       *middleware.Guard
	RateLimiter *middleware.RateLimiter
	CSRFConfig  middleware.CSRFConfig
	Logger      *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// セッションレコード
	SessionService SessionServiceInterface

	// 描画
	View   ViewRenderer
	Static http.Handler

	// 運用
	HealthChecker  HealthChecker
	Metrics        RouterMetrics
	MetricsHandler http.Handler
}

// RouterMetrics はルーターが配線するメトリクス記録のインターフェース。
type RouterMetrics interface {
	middleware.HTTPMetricsRecorder
	LoginRecorder
	SessionMetricsRecorder
}

// NewRouter は全ルートとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → MethodOverride → CSRF → RateLimit(General)
//
// 認証ガード（RequireAuth / RequireGuest）はルートごとに適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewMethodOverrideMiddleware())
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	pageHandler := NewPageHandler(deps.SessionService, deps.View, deps.Metrics)
	guard := deps.Guard

	// 静的アセット
	r.Handle("/static/*", deps.Static)

	// ヘルスチェック
	r.Get("/health", NewHealthHandler(deps.HealthChecker))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	// ランディングページ（ゲスト専用）
	r.Get("/", guard.RequireGuest(pageHandler.Landing))

	// 認証が必要なページ
	r.Get("/dashboard", guard.RequireAuth(pageHandler.Dashboard))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", guard.RequireAuth(pageHandler.ListPublic))
		// 作成は書き込み専用レート制限を追加
		r.With(deps.RateLimiter.MutationMiddleware()).
			Post("/", guard.RequireAuth(pageHandler.Create))

		r.Get("/add", guard.RequireAuth(pageHandler.ShowAdd))
		r.Get("/edit/{id}", guard.RequireAuth(pageHandler.ShowEdit))
		r.Get("/user/{userId}", guard.RequireAuth(pageHandler.ListUserPublic))

		r.Get("/{id}", guard.RequireAuth(pageHandler.Show))
		r.With(deps.RateLimiter.MutationMiddleware()).
			Put("/{id}", guard.RequireAuth(pageHandler.Update))
		r.With(deps.RateLimiter.MutationMiddleware()).
			Delete("/{id}", guard.RequireAuth(pageHandler.Delete))
	})

	return r
}

// NewHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
