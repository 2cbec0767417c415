// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/sessionbook/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id model.UserID) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はユーザーのプロフィール項目（name, first_name, image）を更新する。
	// 再ログイン時にIdPから取得した最新情報で更新するために使用する。
	UpdateProfile(ctx context.Context, user *model.User) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// LoginSessionRepository はログインセッションの永続化インターフェース。
type LoginSessionRepository interface {
	// Create はログインセッションを作成する。
	Create(ctx context.Context, session *model.LoginSession) error
	// FindByID は指定IDのログインセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.LoginSession, error)
	// DeleteByID は指定IDのログインセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションレコードの永続化インターフェース。
// すべての一覧はcreated_at降順（新しい順）で返す。
// 見つからない場合はnilを返し、DB障害の場合のみエラーを返す。
type SessionRepository interface {
	// ListByOwner は指定ユーザーが所有する全セッションレコードを返す。
	ListByOwner(ctx context.Context, ownerID model.UserID) ([]*model.Session, error)

	// ListPublic は公開状態の全セッションレコードを所有者情報付きで返す。
	ListPublic(ctx context.Context) ([]*model.SessionWithOwner, error)

	// ListPublicByOwner は指定ユーザーの公開セッションレコードを所有者情報付きで返す。
	ListPublicByOwner(ctx context.Context, ownerID model.UserID) ([]*model.SessionWithOwner, error)

	// FindByID は指定IDのセッションレコードを所有者情報付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error)

	// FindOwned は指定IDのセッションレコードを結合なしで取得する。
	// 編集フォーム表示と所有権の事前チェックに使用する。見つからない場合はnilを返す。
	FindOwned(ctx context.Context, id model.SessionID) (*model.Session, error)

	// Create はセッションレコードを作成する。
	Create(ctx context.Context, session *model.Session) error

	// UpdateOwned はtitle, body, statusを更新する。
	// WHERE句で所有者を条件に含めた原子的な条件付き更新を行い、
	// 更新された場合にtrueを返す。IDが存在しないか所有者が異なる場合はfalseを返す。
	UpdateOwned(ctx context.Context, id model.SessionID, ownerID model.UserID, title, body string, status model.Visibility) (bool, error)

	// DeleteOwned は所有者を条件に含めてセッションレコードを削除する。
	// 削除された場合にtrueを返す。
	DeleteOwned(ctx context.Context, id model.SessionID, ownerID model.UserID) (bool, error)
}
