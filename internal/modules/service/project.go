package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectUpdate carries a partial update; nil fields are left untouched.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *model.ProjectStatus
}

// DeleteResult reports what the teardown managed to remove remotely before
// the local rows went away.
type DeleteResult struct {
	Cleanup *CleanupReport `json:"cleanup"`
}

type ProjectService interface {
	Create(ctx context.Context, creatorID uuid.UUID, name, description string) (*model.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Project, error)
	Update(ctx context.Context, id uuid.UUID, upd ProjectUpdate) (*model.Project, error)
	Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error)
}

type projectService struct {
	projects  repo.ProjectRepo
	members   repo.MemberRepo
	provision ProvisionService
	log       *zap.Logger
}

func NewProjectService(projects repo.ProjectRepo, members repo.MemberRepo, provision ProvisionService, log *zap.Logger) ProjectService {
	return &projectService{
		projects:  projects,
		members:   members,
		provision: provision,
		log:       log,
	}
}

// Create persists the project and enrolls the creator as its manager. No AI
// resources are provisioned here; that is a separate, explicit step.
func (s *projectService) Create(ctx context.Context, creatorID uuid.UUID, name, description string) (*model.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: project name is empty", ErrValidation)
	}

	project := &model.Project{
		Name:        name,
		Description: description,
		Status:      model.ProjectStatusActive,
		CreatorID:   creatorID,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	membership := &model.ProjectMember{
		ProjectID: project.ID,
		UserID:    creatorID,
		Role:      model.ProjectRoleManager,
	}
	if err := s.members.Add(ctx, membership); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}
	return project, nil
}

func (s *projectService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Project, error) {
	return s.projects.ListForUser(ctx, userID)
}

// Update applies the partial update locally first, then pushes the new name
// and description into the provisioned assistant so the AI surface stays in
// step with the project. A provider failure after the local write is
// reported but does not roll the rename back.
func (s *projectService) Update(ctx context.Context, id uuid.UUID, upd ProjectUpdate) (*model.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, fmt.Errorf("%w: project name is empty", ErrValidation)
		}
		project.Name = *upd.Name
	}
	if upd.Description != nil {
		project.Description = *upd.Description
	}
	if upd.Status != nil {
		switch *upd.Status {
		case model.ProjectStatusActive, model.ProjectStatusCompleted, model.ProjectStatusArchived:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *upd.Status)
		}
		project.Status = *upd.Status
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}

	if (upd.Name != nil || upd.Description != nil) && project.AssistantID != nil {
		if _, err := s.provision.Update(ctx, *project.AssistantID, project.Name, project.Description, nil); err != nil {
			return nil, err
		}
	}
	return project, nil
}

// Delete tears down the provider resources best-effort, then removes the
// project. Memberships, threads and messages go with it via cascade; files
// shared with other associables survive.
func (s *projectService) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := s.provision.Teardown(ctx, project)
	for _, e := range report.Errors {
		s.log.Warn("teardown incomplete", zap.Stringer("project_id", id), zap.String("error", e))
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteResult{Cleanup: report}, nil
}
