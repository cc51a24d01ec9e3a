package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/infra/blob"
	"github.com/covalent-team/covalent/internal/infra/provider"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/covalent-team/covalent/internal/pkg/utils/mime"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IngestInput is one document handed to the pipeline.
type IngestInput struct {
	Name string
	Data []byte
}

// IngestResult reports a batch outcome. Per-file failures do not abort the
// batch; they land in Failed instead of an error return.
type IngestResult struct {
	Succeeded []*model.File   `json:"succeeded"`
	Failed    []IngestFailure `json:"failed"`
}

type IngestFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type IngestService interface {
	Ingest(ctx context.Context, projectID, uploaderID uuid.UUID, inputs []IngestInput) (*IngestResult, error)
	Remove(ctx context.Context, projectID, fileID uuid.UUID) error
	ListForProject(ctx context.Context, projectID uuid.UUID) ([]*model.File, error)
}

type ingestService struct {
	projects repo.ProjectRepo
	files    repo.FileRepo
	client   provider.Client
	s3       *blob.S3Deps
	log      *zap.Logger
	maxSize  int64
}

func NewIngestService(projects repo.ProjectRepo, files repo.FileRepo, client provider.Client, s3 *blob.S3Deps, log *zap.Logger, cfg *config.Config) IngestService {
	return &ingestService{
		projects: projects,
		files:    files,
		client:   client,
		s3:       s3,
		log:      log,
		maxSize:  cfg.Upload.MaxFileSizeBytes,
	}
}

// Ingest uploads each document to the provider, persists the local record
// and association, and finally indexes the successful uploads into the
// project's document index: a single-item indexing call for one file, a
// batch call for several.
func (s *ingestService) Ingest(ctx context.Context, projectID, uploaderID uuid.UUID, inputs []IngestInput) (*IngestResult, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}

	result := &IngestResult{}
	var indexable []string // provider file ids awaiting indexing

	for _, in := range inputs {
		file, err := s.ingestOne(ctx, project, uploaderID, in)
		if err != nil {
			s.log.Warn("file ingestion failed",
				zap.String("project_id", projectID.String()),
				zap.String("file", in.Name),
				zap.Error(err))
			result.Failed = append(result.Failed, IngestFailure{Name: in.Name, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, file)
		indexable = append(indexable, file.ProviderFileID)
	}

	if project.DocumentIndexID != nil && len(indexable) > 0 {
		index, err := s.projects.GetDocumentIndex(ctx, *project.DocumentIndexID)
		if err != nil {
			return nil, err
		}
		if err := s.indexFiles(ctx, index.ProviderID, indexable); err != nil {
			// Uploads stay committed; the index call is retryable later.
			return result, err
		}
	}

	return result, nil
}

func (s *ingestService) ingestOne(ctx context.Context, project *model.Project, uploaderID uuid.UUID, in IngestInput) (*model.File, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: file name is empty", ErrValidation)
	}
	if int64(len(in.Data)) > s.maxSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.maxSize)
	}

	contentType := mime.DetectMimeType(in.Data, in.Name)

	fileID := uuid.New()
	s3Key := "documents/" + fileID.String()
	bucket := ""
	if s.s3 != nil {
		if err := s.s3.Put(ctx, s3Key, contentType, in.Data); err != nil {
			// The durable copy is best-effort; the provider copy is the
			// one the assistant reads from.
			s.log.Warn("blob store write failed", zap.String("key", s3Key), zap.Error(err))
			s3Key = ""
		} else {
			bucket = s.s3.Bucket
		}
	} else {
		s3Key = ""
	}

	remote, err := s.client.UploadFile(ctx, in.Name, in.Data)
	if err != nil {
		return nil, err
	}

	file := &model.File{
		ID:             fileID,
		Name:           in.Name,
		MIME:           contentType,
		SizeB:          int64(len(in.Data)),
		UploaderID:     uploaderID,
		ProviderFileID: remote.ID,
		Bucket:         bucket,
		S3Key:          s3Key,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	// Attach to the assistant when the project is provisioned, else to the
	// bare project.
	assoc := &model.FileAssociation{
		FileID:         file.ID,
		AssociableType: model.AssociableProject,
		AssociableID:   project.ID,
	}
	if project.AssistantID != nil {
		assoc.AssociableType = model.AssociableAssistant
		assoc.AssociableID = *project.AssistantID
	}
	if err := s.files.Associate(ctx, assoc); err != nil {
		return nil, err
	}

	return file, nil
}

func (s *ingestService) indexFiles(ctx context.Context, storeProviderID string, fileIDs []string) error {
	if len(fileIDs) == 1 {
		return s.client.AddFileToVectorStore(ctx, storeProviderID, fileIDs[0])
	}
	_, err := s.client.AddFileBatchToVectorStore(ctx, storeProviderID, fileIDs)
	return err
}

// Remove de-indexes and deletes the file remote-first with log-and-continue
// semantics: a provider failure must never leave a dangling local record.
// The File row survives only when another association still references it.
func (s *ingestService) Remove(ctx context.Context, projectID, fileID uuid.UUID) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: project", ErrNotFound)
		}
		return err
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: file", ErrNotFound)
		}
		return err
	}

	if project.DocumentIndexID != nil && file.ProviderFileID != "" {
		if index, err := s.projects.GetDocumentIndex(ctx, *project.DocumentIndexID); err == nil {
			if err := s.client.RemoveFileFromVectorStore(ctx, index.ProviderID, file.ProviderFileID); err != nil {
				s.log.Warn("de-index failed", zap.String("file_id", fileID.String()), zap.Error(err))
			}
		}
	}

	if file.ProviderFileID != "" {
		if err := s.client.DeleteFile(ctx, file.ProviderFileID); err != nil {
			s.log.Warn("provider file deletion failed", zap.String("file_id", fileID.String()), zap.Error(err))
		}
	}

	if s.s3 != nil && file.S3Key != "" {
		if err := s.s3.Delete(ctx, file.S3Key); err != nil {
			s.log.Warn("blob deletion failed", zap.String("key", file.S3Key), zap.Error(err))
		}
	}

	// Drop the association rows this project scope owns: the project's own
	// and, when provisioned, the assistant's.
	if err := s.files.RemoveAssociations(ctx, fileID, model.AssociableProject, projectID); err != nil {
		return err
	}
	if project.AssistantID != nil {
		if err := s.files.RemoveAssociations(ctx, fileID, model.AssociableAssistant, *project.AssistantID); err != nil {
			return err
		}
	}

	remaining, err := s.files.CountAssociations(ctx, fileID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return s.files.Delete(ctx, fileID)
	}
	return nil
}

// ListForProject returns the files attached to the project or its assistant.
func (s *ingestService) ListForProject(ctx context.Context, projectID uuid.UUID) ([]*model.File, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}

	files, err := s.files.ListFilesForAssociable(ctx, model.AssociableProject, projectID)
	if err != nil {
		return nil, err
	}
	if project.AssistantID != nil {
		more, err := s.files.ListFilesForAssociable(ctx, model.AssociableAssistant, *project.AssistantID)
		if err != nil {
			// Listing degrades to partial data rather than failing the
			// whole response.
			s.log.Warn("assistant file listing failed", zap.Error(err))
		} else {
			files = append(files, more...)
		}
	}
	return files, nil
}
