package middleware

import "net/http"

// methodOverrideField はHTMLフォームからPUT/DELETEを表現するための隠しフィールド名。
const methodOverrideField = "_method"

// NewMethodOverrideMiddleware はPOSTリクエストの_methodフォーム値で
// HTTPメソッドを上書きするミドルウェアを返す。
// HTMLフォームはPOSTしか送信できないため、更新・削除フォームは
// 隠しフィールドで本来のメソッドを指定する。
// 許可される上書き先はPUTとDELETEのみ。
func NewMethodOverrideMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				// ParseFormはボディを消費するが、PostFormに保持されるため
				// 後続ハンドラーのFormValueはそのまま使える
				if err := r.ParseForm(); err == nil {
					switch r.PostForm.Get(methodOverrideField) {
					case http.MethodPut:
						r.Method = http.MethodPut
					case http.MethodDelete:
						r.Method = http.MethodDelete
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
