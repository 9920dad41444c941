package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminUserUsecase struct {
	userRepo  repo.UserRepository
	auditRepo repo.AuditLogRepository
}

func NewAdminUserUsecase(userRepo repo.UserRepository, auditRepo repo.AuditLogRepository) *AdminUserUsecase {
	return &AdminUserUsecase{userRepo: userRepo, auditRepo: auditRepo}
}

type AdminUserListOutput struct {
	Items []model.User `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (u *AdminUserUsecase) List(ctx context.Context, page, limit int, q string) (AdminUserListOutput, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	items, total, err := u.userRepo.List(ctx, repo.UserListFilter{Page: page, Limit: limit, Q: q})
	if err != nil {
		return AdminUserListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return AdminUserListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

type AdminUpdateUserInput struct {
	Role     *string
	IsActive *bool
}

// ロール変更・凍結。変更時はtoken_versionを上げて既存JWTを無効化する。
func (u *AdminUserUsecase) UpdateUser(ctx context.Context, adminUserID int64, targetUserID int64, in AdminUpdateUserInput) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if targetUserID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if in.Role == nil && in.IsActive == nil {
		return NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	if in.Role != nil {
		switch model.Role(*in.Role) {
		case model.RoleUser, model.RoleAdmin:
		default:
			return NewHTTPError(http.StatusBadRequest, "invalid role")
		}
	}
	//自分自身の凍結・降格は事故のもとなので禁止
	if adminUserID == targetUserID {
		return NewHTTPError(http.StatusBadRequest, "cannot update yourself")
	}

	target, err := u.userRepo.FindByID(ctx, targetUserID)
	if err == repo.ErrUserNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	beforeJSON := fmt.Sprintf(`{"role":%q,"is_active":%t}`, target.Role, target.IsActive)

	if in.Role != nil {
		target.Role = model.Role(*in.Role)
	}
	if in.IsActive != nil {
		target.IsActive = *in.IsActive
	}
	if err := u.userRepo.Update(ctx, target); err != nil {
		if err == repo.ErrUserNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//ロールダウン・凍結は即時反映させたいのでトークンを無効化
	if err := u.userRepo.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	afterJSON := fmt.Sprintf(`{"role":%q,"is_active":%t}`, target.Role, target.IsActive)
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateUser,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

type AuditLogListInput struct {
	ActorUserID  *int64
	Action       *string
	ResourceType *string
	ResourceID   *int64
	Limit        int
	Offset       int
}

func (u *AdminUserUsecase) ListAuditLogs(ctx context.Context, in AuditLogListInput) ([]model.AuditLog, error) {
	f := repo.AuditLogFilter{
		ActorUserID: in.ActorUserID,
		ResourceID:  in.ResourceID,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Action != nil {
		a := model.AuditAction(*in.Action)
		f.Action = &a
	}
	if in.ResourceType != nil {
		rt := model.AuditResourceType(*in.ResourceType)
		f.ResourceType = &rt
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}
