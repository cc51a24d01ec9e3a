package repo

import (
	"context"
	"errors"
	"time"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepo interface {
	Create(ctx context.Context, m *model.Message) error
	// CreateIfAbsent inserts the message unless a row with the same
	// provider_message_id exists; reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, m *model.Message) (bool, error)
	// ListForThreadAfter pages forward from the (created_at, id) keyset
	// position, oldest first.
	ListForThreadAfter(ctx context.Context, threadID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]*model.Message, error)
	ListForRun(ctx context.Context, threadID uuid.UUID, runID string) ([]*model.Message, error)
}

type messageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) CreateIfAbsent(ctx context.Context, m *model.Message) (bool, error) {
	if m.ProviderMessageID == nil {
		return false, errors.New("provider message id is required")
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_message_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepo) ListForThreadAfter(ctx context.Context, threadID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]*model.Message, error) {
	q := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Limit(limit)
	if !after.IsZero() {
		q = q.Where("(created_at, id) > (?, ?)", after, afterID)
	}
	var msgs []*model.Message
	err := q.Find(&msgs).Error
	return msgs, err
}

func (r *messageRepo) ListForRun(ctx context.Context, threadID uuid.UUID, runID string) ([]*model.Message, error) {
	var msgs []*model.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND run_id = ?", threadID, runID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
