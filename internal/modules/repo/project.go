package repo

import (
	"context"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	GetByAssistantID(ctx context.Context, assistantID uuid.UUID) (*model.Project, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateDocumentIndex(ctx context.Context, idx *model.DocumentIndex) error
	CreateAssistant(ctx context.Context, a *model.Assistant) error
	GetAssistant(ctx context.Context, id uuid.UUID) (*model.Assistant, error)
	GetDocumentIndex(ctx context.Context, id uuid.UUID) (*model.DocumentIndex, error)
	UpdateAssistant(ctx context.Context, a *model.Assistant) error
	UpdateDocumentIndex(ctx context.Context, idx *model.DocumentIndex) error
	DeleteAssistant(ctx context.Context, id uuid.UUID) error
	DeleteDocumentIndex(ctx context.Context, id uuid.UUID) error
	SetResourceIDs(ctx context.Context, projectID uuid.UUID, indexID, assistantID *uuid.UUID) error
	// ClearResourceIDs nulls both columns so the referenced rows can be
	// deleted without tripping the project's foreign keys.
	ClearResourceIDs(ctx context.Context, projectID uuid.UUID) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Preload("DocumentIndex").
		Preload("Assistant").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) GetByAssistantID(ctx context.Context, assistantID uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Preload("DocumentIndex").
		Preload("Assistant").
		Where("assistant_id = ?", assistantID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForUser returns projects the user created or belongs to.
func (r *projectRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Project, error) {
	var projects []*model.Project
	err := r.db.WithContext(ctx).
		Distinct("projects.*").
		Joins("LEFT JOIN project_members ON project_members.project_id = projects.id").
		Where("projects.creator_id = ? OR project_members.user_id = ?", userID, userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Project{}, "id = ?", id).Error
}

func (r *projectRepo) CreateDocumentIndex(ctx context.Context, idx *model.DocumentIndex) error {
	return r.db.WithContext(ctx).Create(idx).Error
}

func (r *projectRepo) CreateAssistant(ctx context.Context, a *model.Assistant) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *projectRepo) GetAssistant(ctx context.Context, id uuid.UUID) (*model.Assistant, error) {
	var a model.Assistant
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *projectRepo) GetDocumentIndex(ctx context.Context, id uuid.UUID) (*model.DocumentIndex, error) {
	var idx model.DocumentIndex
	if err := r.db.WithContext(ctx).First(&idx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &idx, nil
}

func (r *projectRepo) UpdateAssistant(ctx context.Context, a *model.Assistant) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *projectRepo) UpdateDocumentIndex(ctx context.Context, idx *model.DocumentIndex) error {
	return r.db.WithContext(ctx).Save(idx).Error
}

func (r *projectRepo) DeleteAssistant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Assistant{}, "id = ?", id).Error
}

func (r *projectRepo) DeleteDocumentIndex(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.DocumentIndex{}, "id = ?", id).Error
}

// SetResourceIDs persists whichever halves of the AI resource pair are
// non-nil without touching the other columns.
func (r *projectRepo) SetResourceIDs(ctx context.Context, projectID uuid.UUID, indexID, assistantID *uuid.UUID) error {
	updates := map[string]any{}
	if indexID != nil {
		updates["document_index_id"] = *indexID
	}
	if assistantID != nil {
		updates["assistant_id"] = *assistantID
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id = ?", projectID).
		Updates(updates).Error
}

func (r *projectRepo) ClearResourceIDs(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id = ?", projectID).
		Updates(map[string]any{
			"document_index_id": nil,
			"assistant_id":      nil,
		}).Error
}
