// Package session はセッションレコード管理のドメインロジックを提供する。
// 所有権の検証はすべてこの層で行い、呼び出し元の認証済みユーザーIDを
// 明示的なパラメータとして受け取る。
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/sessionbook/internal/model"
	"github.com/hitoshi/sessionbook/internal/repository"
	"github.com/hitoshi/sessionbook/internal/security"
)

// ErrNotFound は指定されたセッションレコードが存在しないことを表す。
var ErrNotFound = errors.New("session not found")

// ErrNotOwner は呼び出し元がセッションレコードの所有者でないことを表す。
var ErrNotOwner = errors.New("caller is not the session owner")

// ErrInvalidInput はフォーム入力がバリデーションを通過しなかったことを表す。
var ErrInvalidInput = errors.New("invalid session input")

// Input はセッションレコードの作成・更新フォームの入力値。
// 所有者はここには含まれない。所有者は常に認証済みの呼び出し元から確定する。
type Input struct {
	Title  string
	Body   string
	Status string
}

// Service はセッションレコードのCRUDと所有権チェックを提供する。
type Service struct {
	repo      repository.SessionRepository
	sanitizer security.BodySanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.SessionRepository, sanitizer security.BodySanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// ListDashboard は呼び出し元が所有する全セッションレコードを新しい順で返す。
func (s *Service) ListDashboard(ctx context.Context, callerID model.UserID) ([]*model.Session, error) {
	sessions, err := s.repo.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard sessions: %w", err)
	}
	return sessions, nil
}

// ListPublic は公開状態の全セッションレコードを所有者情報付きで新しい順で返す。
func (s *Service) ListPublic(ctx context.Context) ([]*model.SessionWithOwner, error) {
	sessions, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list public sessions: %w", err)
	}
	return sessions, nil
}

// ListPublicByUser は指定ユーザーの公開セッションレコードを所有者情報付きで返す。
// 非公開レコードは所有者本人のリクエストであっても含まれない。
func (s *Service) ListPublicByUser(ctx context.Context, targetID model.UserID) ([]*model.SessionWithOwner, error) {
	sessions, err := s.repo.ListPublicByOwner(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user public sessions: %w", err)
	}
	return sessions, nil
}

// Get は指定IDのセッションレコードを所有者情報付きで取得する。
// 認証済みであれば誰でも閲覧できる。存在しない場合はErrNotFoundを返す。
func (s *Service) Get(ctx context.Context, id model.SessionID) (*model.SessionWithOwner, error) {
	if !validSessionID(id) {
		return nil, ErrNotFound
	}
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrNotFound
	}
	return session, nil
}

// Create は新しいセッションレコードを作成する。
// 所有者は必ずcallerIDになる。フォーム由来の所有者指定は受け付けない。
func (s *Service) Create(ctx context.Context, callerID model.UserID, input Input) (*model.Session, error) {
	title, body, status, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &model.Session{
		ID:        model.SessionID(uuid.New().String()),
		Title:     title,
		Body:      body,
		Status:    status,
		UserID:    callerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetForEdit は編集フォーム表示用にセッションレコードを取得する。
// 存在しない場合はErrNotFound、呼び出し元が所有者でない場合はErrNotOwnerを返す。
func (s *Service) GetForEdit(ctx context.Context, callerID model.UserID, id model.SessionID) (*model.Session, error) {
	if !validSessionID(id) {
		return nil, ErrNotFound
	}
	session, err := s.repo.FindOwned(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session for edit: %w", err)
	}
	if session == nil {
		return nil, ErrNotFound
	}
	if !session.OwnedBy(callerID) {
		return nil, ErrNotOwner
	}
	return session, nil
}

// Update はセッションレコードを更新する。
// 保存前に再取得して所有権を検証し、さらにUPDATE自体もWHERE句で
// 所有者を条件とする原子的な条件付き更新として実行する。
// 所有者フィールドは更新対象に含まれない。
func (s *Service) Update(ctx context.Context, callerID model.UserID, id model.SessionID, input Input) error {
	if !validSessionID(id) {
		return ErrNotFound
	}
	session, err := s.repo.FindOwned(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to refetch session: %w", err)
	}
	if session == nil {
		return ErrNotFound
	}
	if !session.OwnedBy(callerID) {
		return ErrNotOwner
	}

	title, body, status, err := s.validate(input)
	if err != nil {
		return err
	}

	updated, err := s.repo.UpdateOwned(ctx, id, callerID, title, body, status)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if !updated {
		// 再取得との間にレコードが消えた場合
		return ErrNotFound
	}

	return nil
}

// Delete はセッションレコードを削除する。
// 保存前に再取得して所有権を検証し、DELETE自体もWHERE句で所有者を条件とする。
// すでに削除済みのIDに対してはErrNotFoundを返す（冪等）。
func (s *Service) Delete(ctx context.Context, callerID model.UserID, id model.SessionID) error {
	if !validSessionID(id) {
		return ErrNotFound
	}
	session, err := s.repo.FindOwned(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to refetch session: %w", err)
	}
	if session == nil {
		return ErrNotFound
	}
	if !session.OwnedBy(callerID) {
		return ErrNotOwner
	}

	deleted, err := s.repo.DeleteOwned(ctx, id, callerID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	return nil
}

// validSessionID はIDが有効なUUID形式かどうかを返す。
// パス由来の不正な形式のIDはクエリに到達させず、存在しないレコードと同様に扱う。
func validSessionID(id model.SessionID) bool {
	_, err := uuid.Parse(id.String())
	return err == nil
}

// validate はフォーム入力を検証し、保存可能な値に正規化する。
// titleは必須。statusは未指定の場合publicになる。bodyはサニタイズされる。
func (s *Service) validate(input Input) (title, body string, status model.Visibility, err error) {
	title = strings.TrimSpace(input.Title)
	if title == "" {
		return "", "", "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	status = model.Visibility(input.Status)
	if input.Status == "" {
		status = model.VisibilityPublic
	}
	if !status.Valid() {
		return "", "", "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}

	body = s.sanitizer.Sanitize(input.Body)

	return title, body, status, nil
}
