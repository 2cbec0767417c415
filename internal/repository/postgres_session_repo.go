package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/sessionbook/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションレコードリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// ListByOwner は指定ユーザーが所有する全セッションレコードをcreated_at降順で返す。
// 該当なしの場合は空スライスを返す（エラーではない）。
func (r *PostgresSessionRepo) ListByOwner(ctx context.Context, ownerID model.UserID) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, body, status, user_id, created_at, updated_at
		 FROM sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id`,
		string(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions by owner: %w", err)
	}
	defer rows.Close()

	sessions := []*model.Session{}
	for rows.Next() {
		s := &model.Session{}
		if err := rows.Scan(&s.ID, &s.Title, &s.Body, &s.Status, &s.UserID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// ListPublic は公開状態の全セッションレコードを所有者情報付きでcreated_at降順で返す。
func (r *PostgresSessionRepo) ListPublic(ctx context.Context) ([]*model.SessionWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.title, s.body, s.status, s.user_id, s.created_at, s.updated_at,
		        u.name, u.image
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.status = 'public'
		 ORDER BY s.created_at DESC, s.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list public sessions: %w", err)
	}
	defer rows.Close()

	return scanSessionsWithOwner(rows)
}

// ListPublicByOwner は指定ユーザーの公開セッションレコードを所有者情報付きで返す。
func (r *PostgresSessionRepo) ListPublicByOwner(ctx context.Context, ownerID model.UserID) ([]*model.SessionWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.title, s.body, s.status, s.user_id, s.created_at, s.updated_at,
		        u.name, u.image
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.user_id = $1 AND s.status = 'public'
		 ORDER BY s.created_at DESC, s.id`,
		string(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list public sessions by owner: %w", err)
	}
	defer rows.Close()

	return scanSessionsWithOwner(rows)
}

// FindByID は指定IDのセッションレコードを所有者情報付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error) {
	s := &model.SessionWithOwner{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.title, s.body, s.status, s.user_id, s.created_at, s.updated_at,
		        u.name, u.image
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.id = $1`,
		string(id),
	).Scan(&s.ID, &s.Title, &s.Body, &s.Status, &s.UserID, &s.CreatedAt, &s.UpdatedAt,
		&s.OwnerName, &s.OwnerImage)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session by ID: %w", err)
	}

	return s, nil
}

// FindOwned は指定IDのセッションレコードを結合なしで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindOwned(ctx context.Context, id model.SessionID) (*model.Session, error) {
	s := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, body, status, user_id, created_at, updated_at
		 FROM sessions
		 WHERE id = $1`,
		string(id),
	).Scan(&s.ID, &s.Title, &s.Body, &s.Status, &s.UserID, &s.CreatedAt, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return s, nil
}

// Create はセッションレコードを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, body, status, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(session.ID), session.Title, session.Body, string(session.Status),
		string(session.UserID), session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateOwned はWHERE句に所有者条件を含めた原子的な更新を行う。
// IDが存在しないか所有者が異なる場合は何も更新せずfalseを返す。
func (r *PostgresSessionRepo) UpdateOwned(ctx context.Context, id model.SessionID, ownerID model.UserID, title, body string, status model.Visibility) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions
		 SET title = $3, body = $4, status = $5, updated_at = $6
		 WHERE id = $1 AND user_id = $2`,
		string(id), string(ownerID), title, body, string(status), time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteOwned は所有者条件を含めてセッションレコードを削除する。
// IDが存在しないか所有者が異なる場合は何も削除せずfalseを返す。
func (r *PostgresSessionRepo) DeleteOwned(ctx context.Context, id model.SessionID, ownerID model.UserID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1 AND user_id = $2`,
		string(id), string(ownerID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// scanSessionsWithOwner は所有者結合済みの行をスキャンする。
func scanSessionsWithOwner(rows *sql.Rows) ([]*model.SessionWithOwner, error) {
	sessions := []*model.SessionWithOwner{}
	for rows.Next() {
		s := &model.SessionWithOwner{}
		if err := rows.Scan(&s.ID, &s.Title, &s.Body, &s.Status, &s.UserID, &s.CreatedAt, &s.UpdatedAt,
			&s.OwnerName, &s.OwnerImage); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
