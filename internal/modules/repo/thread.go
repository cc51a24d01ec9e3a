package repo

import (
	"context"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ThreadRepo interface {
	Create(ctx context.Context, t *model.Thread) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Thread, error)
	ListForProject(ctx context.Context, projectID uuid.UUID) ([]*model.Thread, error)
	ListIDsForProject(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)
	Rename(ctx context.Context, id uuid.UUID, title string) error
	SetProviderThreadID(ctx context.Context, id uuid.UUID, providerThreadID string) error
	AddTokenUsage(ctx context.Context, id uuid.UUID, prompt, completion, total int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type threadRepo struct{ db *gorm.DB }

func NewThreadRepo(db *gorm.DB) ThreadRepo {
	return &threadRepo{db: db}
}

func (r *threadRepo) Create(ctx context.Context, t *model.Thread) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *threadRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	var t model.Thread
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *threadRepo) ListForProject(ctx context.Context, projectID uuid.UUID) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&threads).Error
	return threads, err
}

func (r *threadRepo) ListIDsForProject(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("project_id = ?", projectID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *threadRepo) Rename(ctx context.Context, id uuid.UUID, title string) error {
	return r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *threadRepo) SetProviderThreadID(ctx context.Context, id uuid.UUID, providerThreadID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("id = ?", id).
		Update("provider_thread_id", providerThreadID).Error
}

// AddTokenUsage rolls run usage up into the thread's running totals.
func (r *threadRepo) AddTokenUsage(ctx context.Context, id uuid.UUID, prompt, completion, total int) error {
	return r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"prompt_tokens":     gorm.Expr("prompt_tokens + ?", prompt),
			"completion_tokens": gorm.Expr("completion_tokens + ?", completion),
			"total_tokens":      gorm.Expr("total_tokens + ?", total),
		}).Error
}

func (r *threadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Thread{}, "id = ?", id).Error
}
