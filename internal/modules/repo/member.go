package repo

import (
	"context"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepo interface {
	Add(ctx context.Context, m *model.ProjectMember) error
	Get(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error)
	List(ctx context.Context, projectID uuid.UUID) ([]*model.ProjectMember, error)
	UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role model.ProjectRole) error
	Remove(ctx context.Context, projectID, userID uuid.UUID) error
	CountByRole(ctx context.Context, projectID uuid.UUID, role model.ProjectRole) (int64, error)
}

type memberRepo struct{ db *gorm.DB }

func NewMemberRepo(db *gorm.DB) MemberRepo {
	return &memberRepo{db: db}
}

func (r *memberRepo) Add(ctx context.Context, m *model.ProjectMember) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *memberRepo) Get(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error) {
	var m model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepo) List(ctx context.Context, projectID uuid.UUID) ([]*model.ProjectMember, error) {
	var members []*model.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *memberRepo) UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role model.ProjectRole) error {
	return r.db.WithContext(ctx).
		Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", role).Error
}

func (r *memberRepo) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.ProjectMember{}).Error
}

func (r *memberRepo) CountByRole(ctx context.Context, projectID uuid.UUID, role model.ProjectRole) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.ProjectMember{}).
		Where("project_id = ? AND role = ?", projectID, role).
		Count(&n).Error
	return n, err
}
