package repo

import (
	"context"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileRepo interface {
	Create(ctx context.Context, f *model.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.File, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Associate(ctx context.Context, a *model.FileAssociation) error
	RemoveAssociations(ctx context.Context, fileID uuid.UUID, associableType model.AssociableType, associableID uuid.UUID) error
	CountAssociations(ctx context.Context, fileID uuid.UUID) (int64, error)
	ListFileIDsForAssociable(ctx context.Context, associableType model.AssociableType, associableID uuid.UUID) ([]uuid.UUID, error)
	ListFilesForAssociable(ctx context.Context, associableType model.AssociableType, associableID uuid.UUID) ([]*model.File, error)
}

type fileRepo struct{ db *gorm.DB }

func NewFileRepo(db *gorm.DB) FileRepo {
	return &fileRepo{db: db}
}

func (r *fileRepo) Create(ctx context.Context, f *model.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	var f model.File
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.File{}, "id = ?", id).Error
}

func (r *fileRepo) Associate(ctx context.Context, a *model.FileAssociation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *fileRepo) RemoveAssociations(ctx context.Context, fileID uuid.UUID, associableType model.AssociableType, associableID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("file_id = ? AND associable_type = ? AND associable_id = ?", fileID, associableType, associableID).
		Delete(&model.FileAssociation{}).Error
}

func (r *fileRepo) CountAssociations(ctx context.Context, fileID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.FileAssociation{}).
		Where("file_id = ?", fileID).
		Count(&n).Error
	return n, err
}

func (r *fileRepo) ListFileIDsForAssociable(ctx context.Context, associableType model.AssociableType, associableID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.FileAssociation{}).
		Where("associable_type = ? AND associable_id = ?", associableType, associableID).
		Pluck("file_id", &ids).Error
	return ids, err
}

func (r *fileRepo) ListFilesForAssociable(ctx context.Context, associableType model.AssociableType, associableID uuid.UUID) ([]*model.File, error) {
	var files []*model.File
	err := r.db.WithContext(ctx).
		Joins("JOIN file_associations ON file_associations.file_id = files.id").
		Where("file_associations.associable_type = ? AND file_associations.associable_id = ?", associableType, associableID).
		Order("files.created_at DESC").
		Find(&files).Error
	return files, err
}
