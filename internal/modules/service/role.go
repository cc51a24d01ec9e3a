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

type RoleService interface {
	List(ctx context.Context) ([]*model.Role, error)
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error)
	Assign(ctx context.Context, userID uuid.UUID, roleName string) error
	Revoke(ctx context.Context, userID uuid.UUID, roleName string) error
}

type roleService struct {
	roles  repo.RoleRepo
	users  repo.UserRepo
	access AccessService
}

func NewRoleService(roles repo.RoleRepo, users repo.UserRepo, access AccessService) RoleService {
	return &roleService{roles: roles, users: users, access: access}
}

func (s *roleService) List(ctx context.Context) ([]*model.Role, error) {
	return s.roles.List(ctx)
}

func (s *roleService) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	return s.roles.ListUserRoles(ctx, userID)
}

func (s *roleService) Assign(ctx context.Context, userID uuid.UUID, roleName string) error {
	role, err := s.getRole(ctx, roleName)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
		return err
	}
	if err := s.roles.AssignRole(ctx, userID, role.ID); err != nil {
		return err
	}
	s.access.InvalidatePermissions(ctx, userID)
	return nil
}

// Revoke removes a system role. Revoking ADMIN from its sole holder is
// refused so the system never ends up without an administrator.
func (s *roleService) Revoke(ctx context.Context, userID uuid.UUID, roleName string) error {
	role, err := s.getRole(ctx, roleName)
	if err != nil {
		return err
	}

	if role.Name == model.RoleAdmin {
		has, err := s.roles.HasRole(ctx, userID, model.RoleAdmin)
		if err != nil {
			return err
		}
		if has {
			n, err := s.roles.CountAssignments(ctx, role.ID)
			if err != nil {
				return err
			}
			if n <= 1 {
				return ErrLastAdmin
			}
		}
	}

	if err := s.roles.RevokeRole(ctx, userID, role.ID); err != nil {
		return err
	}
	s.access.InvalidatePermissions(ctx, userID)
	return nil
}

func (s *roleService) getRole(ctx context.Context, name string) (*model.Role, error) {
	role, err := s.roles.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: role %q", ErrNotFound, name)
		}
		return nil, err
	}
	return role, nil
}
