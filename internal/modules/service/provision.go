package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/infra/provider"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const provisionLockTTL = 30 * time.Second

// ProvisionResult reports the AI resource pair after a provisioning call.
type ProvisionResult struct {
	DocumentIndexID uuid.UUID `json:"document_index_id"`
	AssistantID     uuid.UUID `json:"assistant_id"`
	// Created is false when both ids already existed and no remote call
	// was made.
	Created bool `json:"created"`
}

// LinkageReport is the result of a read-only drift check between the
// assistant's remote configuration and the document index.
type LinkageReport struct {
	IsConnected bool   `json:"is_connected"`
	Details     string `json:"details"`
}

// CleanupReport records the per-step outcome of a teardown. Teardown is
// best-effort: a failed remote deletion never blocks the next step or the
// local project deletion.
type CleanupReport struct {
	AssistantDeleted     bool     `json:"assistant_deleted"`
	DocumentIndexDeleted bool     `json:"document_index_deleted"`
	Errors               []string `json:"errors,omitempty"`
}

type ProvisionService interface {
	Provision(ctx context.Context, projectID uuid.UUID, name, description string) (*ProvisionResult, error)
	Update(ctx context.Context, assistantID uuid.UUID, name, description string, customName *string) (*model.Assistant, error)
	Customize(ctx context.Context, assistantID uuid.UUID, name, instructions *string) (*model.Assistant, error)
	VerifyLinkage(ctx context.Context, assistantID, documentIndexID uuid.UUID) (*LinkageReport, error)
	Teardown(ctx context.Context, project *model.Project) *CleanupReport
}

type provisionService struct {
	projects repo.ProjectRepo
	client   provider.Client
	rdb      *redis.Client
	log      *zap.Logger
	model    string
	lockWait time.Duration
}

func NewProvisionService(projects repo.ProjectRepo, client provider.Client, rdb *redis.Client, log *zap.Logger, cfg *config.Config) ProvisionService {
	return &provisionService{
		projects: projects,
		client:   client,
		rdb:      rdb,
		log:      log,
		model:    cfg.Provider.AssistantModel,
		lockWait: provisionLockTTL,
	}
}

// Provision creates the project's document index and assistant, persisting
// each id as soon as its remote half exists. Idempotent: when both ids are
// already set it returns them without contacting the provider, and after a
// partial failure a later call resumes from the first missing half. Remote
// artifacts are costly to create and safe to leave orphaned, so there is no
// compensating rollback.
func (s *provisionService) Provision(ctx context.Context, projectID uuid.UUID, name, description string) (*ProvisionResult, error) {
	unlock, err := s.lockProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}

	if project.IsProvisioned() {
		return &ProvisionResult{
			DocumentIndexID: *project.DocumentIndexID,
			AssistantID:     *project.AssistantID,
			Created:         false,
		}, nil
	}

	indexID := project.DocumentIndexID
	if indexID == nil {
		remote, err := s.client.CreateVectorStore(ctx, name)
		if err != nil {
			return nil, err
		}
		idx := &model.DocumentIndex{ProviderID: remote.ID, Name: name}
		if err := s.projects.CreateDocumentIndex(ctx, idx); err != nil {
			return nil, err
		}
		if err := s.projects.SetResourceIDs(ctx, projectID, &idx.ID, nil); err != nil {
			return nil, err
		}
		indexID = &idx.ID
	}

	index, err := s.projects.GetDocumentIndex(ctx, *indexID)
	if err != nil {
		return nil, err
	}

	instructions := defaultInstructions(name, description)
	remote, err := s.client.CreateAssistant(ctx, provider.AssistantParams{
		Name:         strPtr(name),
		Description:  strPtr(description),
		Model:        strPtr(s.model),
		Instructions: strPtr(instructions),
		Tools:        []provider.Tool{{Type: "file_search"}},
		ToolResources: &provider.ToolResources{
			FileSearch: &provider.FileSearchResources{VectorStoreIDs: []string{index.ProviderID}},
		},
	})
	if err != nil {
		// The index id is already persisted; re-invoking provisioning will
		// create only the missing assistant.
		return nil, err
	}

	assistant := &model.Assistant{
		ProviderID: remote.ID,
		Name:       name,
		Model:      s.model,
		Configs: datatypes.JSONMap{
			model.AssistantConfigInstructions: instructions,
		},
	}
	if err := s.projects.CreateAssistant(ctx, assistant); err != nil {
		return nil, err
	}
	if err := s.projects.SetResourceIDs(ctx, projectID, nil, &assistant.ID); err != nil {
		return nil, err
	}

	return &ProvisionResult{
		DocumentIndexID: *indexID,
		AssistantID:     assistant.ID,
		Created:         true,
	}, nil
}

// Update pushes a project rename/redescribe into the assistant's remote
// configuration. Remote update responses are not trusted to preserve fields
// the caller did not send, so local configs are re-merged afterwards.
func (s *provisionService) Update(ctx context.Context, assistantID uuid.UUID, name, description string, customName *string) (*model.Assistant, error) {
	assistant, err := s.projects.GetAssistant(ctx, assistantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assistant", ErrNotFound)
		}
		return nil, err
	}

	remoteName := name
	if customName != nil && *customName != "" {
		remoteName = *customName
	}

	params := provider.AssistantParams{
		Name:        strPtr(remoteName),
		Description: strPtr(description),
	}
	// Custom instructions stored locally survive the remote update.
	if instructions := assistant.Instructions(); instructions != "" {
		params.Instructions = strPtr(instructions)
	}

	if _, err := s.client.UpdateAssistant(ctx, assistant.ProviderID, params); err != nil {
		return nil, err
	}

	assistant.Name = remoteName
	if assistant.Configs == nil {
		assistant.Configs = datatypes.JSONMap{}
	}
	if err := s.projects.UpdateAssistant(ctx, assistant); err != nil {
		return nil, err
	}

	s.renameDocumentIndex(ctx, assistantID, name)
	return assistant, nil
}

// renameDocumentIndex keeps the document index name in step with a project
// rename. Best-effort: the assistant rename already committed and the index
// name is cosmetic.
func (s *provisionService) renameDocumentIndex(ctx context.Context, assistantID uuid.UUID, name string) {
	project, err := s.projects.GetByAssistantID(ctx, assistantID)
	if err != nil || project.DocumentIndexID == nil {
		return
	}
	index, err := s.projects.GetDocumentIndex(ctx, *project.DocumentIndexID)
	if err != nil || index.Name == name {
		return
	}
	if _, err := s.client.UpdateVectorStore(ctx, index.ProviderID, name); err != nil {
		s.log.Warn("document index rename failed",
			zap.String("document_index_id", index.ID.String()),
			zap.Error(err))
		return
	}
	index.Name = name
	if err := s.projects.UpdateDocumentIndex(ctx, index); err != nil {
		s.log.Warn("document index local rename failed",
			zap.String("document_index_id", index.ID.String()),
			zap.Error(err))
	}
}

// Customize overrides the assistant's display name and/or instructions,
// remotely first and then locally so the stored configs mirror what the
// provider holds.
func (s *provisionService) Customize(ctx context.Context, assistantID uuid.UUID, name, instructions *string) (*model.Assistant, error) {
	assistant, err := s.projects.GetAssistant(ctx, assistantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assistant", ErrNotFound)
		}
		return nil, err
	}
	if name == nil && instructions == nil {
		return assistant, nil
	}

	params := provider.AssistantParams{}
	if name != nil {
		if *name == "" {
			return nil, fmt.Errorf("%w: assistant name is empty", ErrValidation)
		}
		params.Name = name
	}
	if instructions != nil {
		params.Instructions = instructions
	}

	if _, err := s.client.UpdateAssistant(ctx, assistant.ProviderID, params); err != nil {
		return nil, err
	}

	if name != nil {
		assistant.Name = *name
	}
	if instructions != nil {
		if assistant.Configs == nil {
			assistant.Configs = datatypes.JSONMap{}
		}
		assistant.Configs[model.AssistantConfigInstructions] = *instructions
	}
	if err := s.projects.UpdateAssistant(ctx, assistant); err != nil {
		return nil, err
	}
	return assistant, nil
}

// VerifyLinkage checks whether the assistant's remote tool resources still
// reference the document index; used for diagnosing drift.
func (s *provisionService) VerifyLinkage(ctx context.Context, assistantID, documentIndexID uuid.UUID) (*LinkageReport, error) {
	assistant, err := s.projects.GetAssistant(ctx, assistantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assistant", ErrNotFound)
		}
		return nil, err
	}
	index, err := s.projects.GetDocumentIndex(ctx, documentIndexID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document index", ErrNotFound)
		}
		return nil, err
	}

	remote, err := s.client.RetrieveAssistant(ctx, assistant.ProviderID)
	if err != nil {
		return nil, err
	}

	if remote.ToolResources != nil && remote.ToolResources.FileSearch != nil {
		for _, id := range remote.ToolResources.FileSearch.VectorStoreIDs {
			if id == index.ProviderID {
				return &LinkageReport{
					IsConnected: true,
					Details:     "assistant references the document index",
				}, nil
			}
		}
	}
	return &LinkageReport{
		IsConnected: false,
		Details:     fmt.Sprintf("assistant %s does not reference index %s", assistant.ProviderID, index.ProviderID),
	}, nil
}

// Teardown deletes the assistant first, then the document index, catching
// and recording the failure of each step independently. It never returns an
// error: every outcome goes into the report so the caller can audit it and
// proceed with local deletion regardless.
func (s *provisionService) Teardown(ctx context.Context, project *model.Project) *CleanupReport {
	report := &CleanupReport{}
	if project.AssistantID == nil && project.DocumentIndexID == nil {
		return report
	}

	var assistant *model.Assistant
	if project.AssistantID != nil {
		a, err := s.projects.GetAssistant(ctx, *project.AssistantID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("load assistant: %v", err))
		} else {
			assistant = a
		}
	}
	var index *model.DocumentIndex
	if project.DocumentIndexID != nil {
		idx, err := s.projects.GetDocumentIndex(ctx, *project.DocumentIndexID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("load document index: %v", err))
		} else {
			index = idx
		}
	}

	// The project's references must be dropped before the rows themselves;
	// deleting a still-referenced row violates the foreign keys.
	if err := s.projects.ClearResourceIDs(ctx, project.ID); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("clear resource ids: %v", err))
		return report
	}

	if assistant != nil {
		if err := s.client.DeleteAssistant(ctx, assistant.ProviderID); err != nil {
			s.log.Warn("assistant remote deletion failed",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("delete assistant: %v", err))
		} else {
			report.AssistantDeleted = true
		}
		if err := s.projects.DeleteAssistant(ctx, assistant.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("delete local assistant: %v", err))
		}
	}

	if index != nil {
		if err := s.client.DeleteVectorStore(ctx, index.ProviderID); err != nil {
			s.log.Warn("document index remote deletion failed",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("delete document index: %v", err))
		} else {
			report.DocumentIndexDeleted = true
		}
		if err := s.projects.DeleteDocumentIndex(ctx, index.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("delete local document index: %v", err))
		}
	}

	return report
}

// lockProject serializes concurrent provisioning of the same project so two
// racing calls cannot both create remote resources. The loser of the race
// waits for the lock and then observes the winner's persisted ids.
func (s *provisionService) lockProject(ctx context.Context, projectID uuid.UUID) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}
	key := "provision_lock:" + projectID.String()

	deadline := time.Now().Add(s.lockWait)
	for {
		ok, err := s.rdb.SetNX(ctx, key, "1", provisionLockTTL).Result()
		if err != nil {
			// Redis being down must not make provisioning unavailable.
			s.log.Warn("provision lock unavailable", zap.Error(err))
			return func() {}, nil
		}
		if ok {
			return func() { _ = s.rdb.Del(context.WithoutCancel(ctx), key).Err() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: provisioning already in progress", ErrValidation)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func defaultInstructions(name, description string) string {
	return fmt.Sprintf(
		"You are the assistant for the %q project. %s Answer using the project's uploaded documents when relevant.",
		name, description)
}

func strPtr(s string) *string { return &s }
