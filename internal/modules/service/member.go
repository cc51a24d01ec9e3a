package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberService interface {
	Add(ctx context.Context, projectID, userID uuid.UUID, role model.ProjectRole) (*model.ProjectMember, error)
	List(ctx context.Context, projectID uuid.UUID) ([]*model.ProjectMember, error)
	UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role model.ProjectRole) (*model.ProjectMember, error)
	Remove(ctx context.Context, projectID, userID uuid.UUID) error
}

type memberService struct {
	members  repo.MemberRepo
	projects repo.ProjectRepo
	users    repo.UserRepo
	access   AccessService
}

func NewMemberService(members repo.MemberRepo, projects repo.ProjectRepo, users repo.UserRepo, access AccessService) MemberService {
	return &memberService{
		members:  members,
		projects: projects,
		users:    users,
		access:   access,
	}
}

func validProjectRole(role model.ProjectRole) bool {
	switch role {
	case model.ProjectRoleMember, model.ProjectRoleManager, model.ProjectRoleAdmin:
		return true
	}
	return false
}

func (s *memberService) Add(ctx context.Context, projectID, userID uuid.UUID, role model.ProjectRole) (*model.ProjectMember, error) {
	if !validProjectRole(role) {
		return nil, fmt.Errorf("%w: unknown project role %q", ErrValidation, role)
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	if _, err := s.members.Get(ctx, projectID, userID); err == nil {
		return nil, fmt.Errorf("%w: user is already a member", ErrValidation)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m := &model.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.members.Add(ctx, m); err != nil {
		return nil, err
	}
	s.access.InvalidatePermissions(ctx, userID)
	return m, nil
}

func (s *memberService) List(ctx context.Context, projectID uuid.UUID) ([]*model.ProjectMember, error) {
	return s.members.List(ctx, projectID)
}

// UpdateRole changes a membership role. Demoting the last manager-or-above
// is refused so the project always keeps someone who can run it.
func (s *memberService) UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role model.ProjectRole) (*model.ProjectMember, error) {
	if !validProjectRole(role) {
		return nil, fmt.Errorf("%w: unknown project role %q", ErrValidation, role)
	}
	m, err := s.members.Get(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: membership", ErrNotFound)
		}
		return nil, err
	}
	if m.Role == role {
		return m, nil
	}

	if m.IsElevated() && role == model.ProjectRoleMember {
		elevated, err := s.countElevated(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if elevated <= 1 {
			return nil, ErrLastManager
		}
	}

	if err := s.members.UpdateRole(ctx, projectID, userID, role); err != nil {
		return nil, err
	}
	m.Role = role
	s.access.InvalidatePermissions(ctx, userID)
	return m, nil
}

// Remove drops a membership. The last elevated member cannot be removed,
// which also keeps the creator in place until another manager exists.
func (s *memberService) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: project", ErrNotFound)
		}
		return err
	}

	m, err := s.members.Get(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: membership", ErrNotFound)
		}
		return err
	}
	if m.IsElevated() {
		elevated, err := s.countElevated(ctx, projectID)
		if err != nil {
			return err
		}
		if elevated <= 1 {
			return ErrLastManager
		}
	}

	if err := s.members.Remove(ctx, projectID, userID); err != nil {
		return err
	}
	s.access.InvalidatePermissions(ctx, userID)
	return nil
}

func (s *memberService) countElevated(ctx context.Context, projectID uuid.UUID) (int64, error) {
	managers, err := s.members.CountByRole(ctx, projectID, model.ProjectRoleManager)
	if err != nil {
		return 0, err
	}
	admins, err := s.members.CountByRole(ctx, projectID, model.ProjectRoleAdmin)
	if err != nil {
		return 0, err
	}
	return managers + admins, nil
}
