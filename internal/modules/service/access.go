package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Operation names the protected actions the evaluator knows about.
type Operation string

const (
	OpProjectCreate Operation = "project.create"
	OpProjectRead   Operation = "project.read"
	OpProjectRename Operation = "project.rename"
	OpProjectDelete Operation = "project.delete"
	OpMemberManage  Operation = "member.manage"
	OpFileUpload    Operation = "file.upload"
	OpFileDelete    Operation = "file.delete"
	OpChat          Operation = "chat"
	OpAISetup       Operation = "ai.setup"
	OpRoleManage    Operation = "role.manage"
)

// structuralOps are project-shape changes the project creator may always
// perform, explicit membership row or not.
var structuralOps = map[Operation]bool{
	OpProjectRename: true,
	OpProjectDelete: true,
	OpMemberManage:  true,
	OpAISetup:       true,
}

// contentOps require an elevated project role (manager/admin) or creator.
var contentOps = map[Operation]bool{
	OpFileUpload: true,
	OpFileDelete: true,
}

// readOps are open to any member of the project.
var readOps = map[Operation]bool{
	OpProjectRead: true,
	OpChat:        true,
}

// Scope narrows an operation to a target project; zero Scope means a
// system-wide (admin) operation.
type Scope struct {
	ProjectID uuid.UUID
}

// Guard is an arbitrary predicate evaluated against the requester and the
// scope, composable with the role checks.
type Guard func(ctx context.Context, user *model.User, scope Scope) (bool, error)

// AccessService is the single authorization decision point. It is a pure
// decision function over current state: no side effects beyond the
// permission-set cache.
type AccessService interface {
	// Authorize returns nil, ErrUnauthenticated or ErrForbidden.
	Authorize(ctx context.Context, user *model.User, op Operation, scope Scope) error
	// HasPermission tests membership of the union of permissions granted to
	// every role assigned to the user.
	HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
	// RequireSystemRole passes only when the user holds the named role.
	RequireSystemRole(ctx context.Context, user *model.User, roleName string) error
	// RequireProjectRole passes when the user's membership role is in the
	// accepted set, or they are the project creator.
	RequireProjectRole(ctx context.Context, user *model.User, projectID uuid.UUID, roles ...model.ProjectRole) error
	// RequireFunc evaluates an arbitrary guard predicate.
	RequireFunc(ctx context.Context, user *model.User, scope Scope, guard Guard) error
	// InvalidatePermissions drops the cached permission set after grant
	// mutations.
	InvalidatePermissions(ctx context.Context, userID uuid.UUID)
}

type accessService struct {
	roles    repo.RoleRepo
	members  repo.MemberRepo
	projects repo.ProjectRepo
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewAccessService(roles repo.RoleRepo, members repo.MemberRepo, projects repo.ProjectRepo, rdb *redis.Client, cacheTTL time.Duration) AccessService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &accessService{
		roles:    roles,
		members:  members,
		projects: projects,
		rdb:      rdb,
		cacheTTL: cacheTTL,
	}
}

func (s *accessService) Authorize(ctx context.Context, user *model.User, op Operation, scope Scope) error {
	if user == nil {
		return ErrUnauthenticated
	}

	// System ADMIN has blanket access.
	isAdmin, err := s.roles.HasRole(ctx, user.ID, model.RoleAdmin)
	if err != nil {
		return err
	}
	if isAdmin {
		return nil
	}

	// System-scoped operations.
	switch op {
	case OpRoleManage:
		return s.requirePermission(ctx, user.ID, model.PermRoleManage)
	case OpProjectCreate:
		return s.requirePermission(ctx, user.ID, model.PermProjectCreate)
	}

	if scope.ProjectID == uuid.Nil {
		return ErrForbidden
	}

	project, err := s.projects.GetByID(ctx, scope.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: project", ErrNotFound)
		}
		return err
	}

	// The creator is always authorized for structural changes on their own
	// project, membership row or not.
	if project.CreatorID == user.ID {
		return nil
	}

	member, err := s.members.Get(ctx, scope.ProjectID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}

	switch {
	case structuralOps[op] || contentOps[op]:
		if member.IsElevated() {
			return nil
		}
		return ErrForbidden
	case readOps[op]:
		// Any member may read and chat.
		return nil
	}
	return ErrForbidden
}

func (s *accessService) requirePermission(ctx context.Context, userID uuid.UUID, permission string) error {
	ok, err := s.HasPermission(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func permCacheKey(userID uuid.UUID) string {
	return "perms:" + userID.String()
}

func (s *accessService) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	perms, err := s.permissionSet(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

// permissionSet resolves the user's effective permissions, going through
// the redis cache when available.
func (s *accessService) permissionSet(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, permCacheKey(userID)).Bytes(); err == nil {
			var cached []string
			if err := sonic.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	perms, err := s.roles.ListUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := sonic.Marshal(perms); err == nil {
			// Cache failures are not authorization failures.
			_ = s.rdb.Set(ctx, permCacheKey(userID), raw, s.cacheTTL).Err()
		}
	}
	return perms, nil
}

func (s *accessService) RequireSystemRole(ctx context.Context, user *model.User, roleName string) error {
	if user == nil {
		return ErrUnauthenticated
	}
	ok, err := s.roles.HasRole(ctx, user.ID, roleName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *accessService) RequireProjectRole(ctx context.Context, user *model.User, projectID uuid.UUID, roles ...model.ProjectRole) error {
	if user == nil {
		return ErrUnauthenticated
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: project", ErrNotFound)
		}
		return err
	}
	if project.CreatorID == user.ID {
		return nil
	}

	member, err := s.members.Get(ctx, projectID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	for _, r := range roles {
		if member.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

func (s *accessService) RequireFunc(ctx context.Context, user *model.User, scope Scope, guard Guard) error {
	if user == nil {
		return ErrUnauthenticated
	}
	ok, err := guard(ctx, user, scope)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *accessService) InvalidatePermissions(ctx context.Context, userID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, permCacheKey(userID)).Err()
}
