package service

import (
	"context"
	"testing"

	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/infra/provider"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func ingestTestConfig(maxBytes int64) *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{MaxFileSizeBytes: maxBytes},
	}
}

func TestIngestService_Ingest_PartialBatchFailure(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	uploaderID := uuid.New()
	indexID := uuid.New()
	assistantID := uuid.New()

	projects := &MockProjectRepo{}
	files := &MockFileRepo{}
	client := &MockProviderClient{}

	projects.On("GetByID", ctx, projectID).Return(&model.Project{
		ID:              projectID,
		DocumentIndexID: &indexID,
		AssistantID:     &assistantID,
	}, nil)
	projects.On("GetDocumentIndex", ctx, indexID).
		Return(&model.DocumentIndex{ProviderID: "vs_1"}, nil)

	client.On("UploadFile", ctx, "a.txt", mock.Anything).Return(&provider.File{ID: "file_a"}, nil)
	client.On("UploadFile", ctx, "c.txt", mock.Anything).Return(&provider.File{ID: "file_c"}, nil)
	files.On("Create", ctx, mock.AnythingOfType("*model.File")).Return(nil)
	files.On("Associate", ctx, mock.AnythingOfType("*model.FileAssociation")).Return(nil)

	// Two survivors go through the batch indexing call.
	client.On("AddFileBatchToVectorStore", ctx, "vs_1", []string{"file_a", "file_c"}).
		Return(&provider.FileBatch{ID: "batch_1"}, nil)

	svc := NewIngestService(projects, files, client, nil, zap.NewNop(), ingestTestConfig(10))

	res, err := svc.Ingest(ctx, projectID, uploaderID, []IngestInput{
		{Name: "a.txt", Data: []byte("small")},
		{Name: "b.txt", Data: []byte("this one is far too large")},
		{Name: "c.txt", Data: []byte("tiny")},
	})
	assert.NoError(t, err)
	assert.Len(t, res.Succeeded, 2)
	assert.Len(t, res.Failed, 1)
	assert.Equal(t, "b.txt", res.Failed[0].Name)
	// The oversized file never reached the provider.
	client.AssertNotCalled(t, "UploadFile", ctx, "b.txt", mock.Anything)
	client.AssertExpectations(t)
}

func TestIngestService_Ingest_SingleFileUsesSingleIndexCall(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	indexID := uuid.New()

	projects := &MockProjectRepo{}
	files := &MockFileRepo{}
	client := &MockProviderClient{}

	projects.On("GetByID", ctx, projectID).Return(&model.Project{
		ID:              projectID,
		DocumentIndexID: &indexID,
	}, nil)
	projects.On("GetDocumentIndex", ctx, indexID).
		Return(&model.DocumentIndex{ProviderID: "vs_1"}, nil)

	client.On("UploadFile", ctx, "a.txt", mock.Anything).Return(&provider.File{ID: "file_a"}, nil)
	files.On("Create", ctx, mock.AnythingOfType("*model.File")).Return(nil)
	files.On("Associate", ctx, mock.MatchedBy(func(a *model.FileAssociation) bool {
		// Unprovisioned project: the association points at the project.
		return a.AssociableType == model.AssociableProject && a.AssociableID == projectID
	})).Return(nil)
	client.On("AddFileToVectorStore", ctx, "vs_1", "file_a").Return(nil)

	svc := NewIngestService(projects, files, client, nil, zap.NewNop(), ingestTestConfig(1024))

	res, err := svc.Ingest(ctx, projectID, uuid.New(), []IngestInput{
		{Name: "a.txt", Data: []byte("hello")},
	})
	assert.NoError(t, err)
	assert.Len(t, res.Succeeded, 1)
	client.AssertNotCalled(t, "AddFileBatchToVectorStore", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_Remove_DeletesWhenNoAssociationsRemain(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	fileID := uuid.New()
	indexID := uuid.New()
	assistantID := uuid.New()

	projects := &MockProjectRepo{}
	files := &MockFileRepo{}
	client := &MockProviderClient{}

	projects.On("GetByID", ctx, projectID).Return(&model.Project{
		ID:              projectID,
		DocumentIndexID: &indexID,
		AssistantID:     &assistantID,
	}, nil)
	files.On("GetByID", ctx, fileID).Return(&model.File{
		ID:             fileID,
		ProviderFileID: "file_a",
	}, nil)
	projects.On("GetDocumentIndex", ctx, indexID).
		Return(&model.DocumentIndex{ProviderID: "vs_1"}, nil)

	client.On("RemoveFileFromVectorStore", ctx, "vs_1", "file_a").Return(nil)
	client.On("DeleteFile", ctx, "file_a").Return(nil)
	files.On("RemoveAssociations", ctx, fileID, model.AssociableProject, projectID).Return(nil)
	files.On("RemoveAssociations", ctx, fileID, model.AssociableAssistant, assistantID).Return(nil)
	files.On("CountAssociations", ctx, fileID).Return(int64(0), nil)
	files.On("Delete", ctx, fileID).Return(nil)

	svc := NewIngestService(projects, files, client, nil, zap.NewNop(), ingestTestConfig(1024))

	err := svc.Remove(ctx, projectID, fileID)
	assert.NoError(t, err)
	files.AssertCalled(t, "Delete", ctx, fileID)
}

func TestIngestService_Remove_KeepsSharedFile(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	fileID := uuid.New()

	projects := &MockProjectRepo{}
	files := &MockFileRepo{}
	client := &MockProviderClient{}

	projects.On("GetByID", ctx, projectID).Return(&model.Project{ID: projectID}, nil)
	files.On("GetByID", ctx, fileID).Return(&model.File{
		ID:             fileID,
		ProviderFileID: "file_a",
	}, nil)

	// Provider deletion fails; removal continues regardless.
	client.On("DeleteFile", ctx, "file_a").Return(&provider.Error{Status: 502, Body: "bad gateway"})
	files.On("RemoveAssociations", ctx, fileID, model.AssociableProject, projectID).Return(nil)
	files.On("CountAssociations", ctx, fileID).Return(int64(1), nil)

	svc := NewIngestService(projects, files, client, nil, zap.NewNop(), ingestTestConfig(1024))

	err := svc.Remove(ctx, projectID, fileID)
	assert.NoError(t, err)
	// A message-scoped association still references the file: the row stays.
	files.AssertNotCalled(t, "Delete", ctx, fileID)
}
