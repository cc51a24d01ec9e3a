package repo

import (
	"context"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityRef identifies one (entity_type, entity_id) pair belonging to a
// project timeline.
type EntityRef struct {
	EntityType string
	EntityID   uuid.UUID
}

type ActivityRepo interface {
	Append(ctx context.Context, e *model.ActivityLog) error
	ListForEntities(ctx context.Context, refs []EntityRef, limit, offset int) ([]*model.ActivityLog, error)
}

type activityRepo struct{ db *gorm.DB }

func NewActivityRepo(db *gorm.DB) ActivityRepo {
	return &activityRepo{db: db}
}

func (r *activityRepo) Append(ctx context.Context, e *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *activityRepo) ListForEntities(ctx context.Context, refs []EntityRef, limit, offset int) ([]*model.ActivityLog, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).Model(&model.ActivityLog{})
	cond := r.db.Session(&gorm.Session{NewDB: true})
	for _, ref := range refs {
		cond = cond.Or(r.db.Session(&gorm.Session{NewDB: true}).
			Where("entity_type = ? AND entity_id = ?", ref.EntityType, ref.EntityID))
	}
	q = q.Where(cond).Order("created_at DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var entries []*model.ActivityLog
	return entries, q.Find(&entries).Error
}
