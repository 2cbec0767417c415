// Package model はドメインモデルを定義する。
package model

import "time"

// UserID はユーザーの識別子。
// 所有権チェックを文字列比較ではなく型付きの等価比較で行うための型。
type UserID string

// String はUserIDの文字列表現を返す。
func (id UserID) String() string {
	return string(id)
}

// User はサービス利用ユーザーを表す。
// Googleログインの初回成功時に自動作成され、本システムからは削除されない。
type User struct {
	ID        UserID
	Name      string
	FirstName string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         UserID
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// LoginSession はユーザーのログインセッションを表す。
// ドメインレコードのSessionとは別物で、Cookieに保持されるIDで参照される。
type LoginSession struct {
	ID        string
	UserID    UserID
	ExpiresAt time.Time
	CreatedAt time.Time
}
