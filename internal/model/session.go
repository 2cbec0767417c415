// Package model はドメインモデルを定義する。
package model

import "time"

// SessionID はセッションレコードの識別子。
type SessionID string

// String はSessionIDの文字列表現を返す。
func (id SessionID) String() string {
	return string(id)
}

// Visibility はセッションレコードの公開範囲を表す。
type Visibility string

const (
	// VisibilityPublic は全認証ユーザーに公開される状態。
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate は所有者のみが閲覧できる状態。
	VisibilityPrivate Visibility = "private"
)

// Valid はVisibilityが定義済みの値かどうかを返す。
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Session はユーザーが作成するセッションレコードを表す。
// ログインセッション（LoginSession）とは別物。
// 所有者は作成時に認証済みユーザーから確定し、以後変更されない。
type Session struct {
	ID        SessionID
	Title     string
	Body      string // サニタイズ済みHTML
	Status    Visibility
	UserID    UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy はセッションレコードが指定ユーザーの所有かどうかを返す。
func (s *Session) OwnedBy(userID UserID) bool {
	return s.UserID == userID
}

// SessionWithOwner はセッションレコードと所有者の公開情報を結合した構造体。
// 公開一覧と詳細表示で使用する。
type SessionWithOwner struct {
	Session
	OwnerName  string
	OwnerImage string
}
