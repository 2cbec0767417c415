// Package view はHTMLテンプレートの描画を提供する。
// 各ページはレイアウトテンプレートに包まれて描画される。
// ランディングページのみ最小限のloginレイアウトを使用し、
// それ以外のページはデフォルトのmainレイアウトを使用する。
package view

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/layouts/*.html templates/pages/*.html templates/pages/*/*.html
var templatesFS embed.FS

// ページ名と（ページテンプレートのパス, レイアウト）の対応。
var pageDefs = map[string]struct {
	page   string
	layout string
}{
	"login":          {"templates/pages/login.html", "login"},
	"dashboard":      {"templates/pages/dashboard.html", "main"},
	"sessions/index": {"templates/pages/sessions/index.html", "main"},
	"sessions/show":  {"templates/pages/sessions/show.html", "main"},
	"sessions/add":   {"templates/pages/sessions/add.html", "main"},
	"sessions/edit":  {"templates/pages/sessions/edit.html", "main"},
	"error/404":      {"templates/pages/error/404.html", "main"},
	"error/500":      {"templates/pages/error/500.html", "main"},
}

// Renderer はページ名とデータからHTMLを描画する。
// テンプレートは起動時に1回だけパースされる。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は全ページテンプレートをパースしたRendererを生成する。
// テンプレートに構文エラーがある場合はエラーを返す。
func NewRenderer() (*Renderer, error) {
	strict := bluemonday.StrictPolicy()
	funcs := template.FuncMap{
		"formatDate": formatDate,
		"truncate":   truncate,
		"safeHTML":   safeHTML,
		"stripTags": func(s string) string {
			return strings.TrimSpace(strict.Sanitize(s))
		},
	}

	pages := make(map[string]*template.Template, len(pageDefs))
	for name, def := range pageDefs {
		layoutPath := "templates/layouts/" + def.layout + ".html"
		t, err := template.New(def.layout+".html").Funcs(funcs).ParseFS(templatesFS, layoutPath, def.page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{pages: pages}, nil
}

// Render は指定ページをレイアウト込みで描画する。
// 描画に失敗した場合はログに記録し、プレーンな500レスポンスを返す。
func (r *Renderer) Render(w http.ResponseWriter, statusCode int, name string, data any) {
	t, ok := r.pages[name]
	if !ok {
		slog.Error("unknown view name", slog.String("view", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := t.Execute(w, data); err != nil {
		slog.Error("failed to render view",
			slog.String("view", name),
			slog.String("error", err.Error()),
		)
	}
}

// formatDate は表示用の日付フォーマットを返す。
func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// truncate は文字列を指定文字数で切り詰め、省略記号を付与する。
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// safeHTML はサニタイズ済みHTMLをエスケープせずに埋め込むための変換。
// bluemondayを通過した本文にのみ使用すること。
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}
