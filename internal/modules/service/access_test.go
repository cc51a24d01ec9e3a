package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestAccessService_Authorize_Matrix(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	creatorID := uuid.New()

	admin := &model.User{ID: uuid.New()}
	creator := &model.User{ID: creatorID}
	manager := &model.User{ID: uuid.New()}
	member := &model.User{ID: uuid.New()}
	outsider := &model.User{ID: uuid.New()}

	newSvc := func() AccessService {
		roles := &MockRoleRepo{}
		members := &MockMemberRepo{}
		projects := &MockProjectRepo{}

		roles.On("HasRole", ctx, admin.ID, model.RoleAdmin).Return(true, nil)
		for _, u := range []*model.User{creator, manager, member, outsider} {
			roles.On("HasRole", ctx, u.ID, model.RoleAdmin).Return(false, nil)
		}
		projects.On("GetByID", ctx, projectID).Return(&model.Project{
			ID:        projectID,
			CreatorID: creatorID,
		}, nil)
		members.On("Get", ctx, projectID, manager.ID).Return(&model.ProjectMember{
			ProjectID: projectID, UserID: manager.ID, Role: model.ProjectRoleManager,
		}, nil)
		members.On("Get", ctx, projectID, member.ID).Return(&model.ProjectMember{
			ProjectID: projectID, UserID: member.ID, Role: model.ProjectRoleMember,
		}, nil)
		members.On("Get", ctx, projectID, outsider.ID).Return(nil, gorm.ErrRecordNotFound)

		return NewAccessService(roles, members, projects, nil, time.Minute)
	}

	scope := Scope{ProjectID: projectID}

	cases := []struct {
		name    string
		user    *model.User
		op      Operation
		allowed bool
	}{
		{"admin deletes any project", admin, OpProjectDelete, true},
		{"admin manages roles", admin, OpRoleManage, true},
		{"creator renames own project", creator, OpProjectRename, true},
		{"creator uploads to own project", creator, OpFileUpload, true},
		{"manager manages members", manager, OpMemberManage, true},
		{"manager uploads files", manager, OpFileUpload, true},
		{"manager chats", manager, OpChat, true},
		{"member reads project", member, OpProjectRead, true},
		{"member chats", member, OpChat, true},
		{"member cannot upload", member, OpFileUpload, false},
		{"member cannot rename", member, OpProjectRename, false},
		{"member cannot manage members", member, OpMemberManage, false},
		{"outsider cannot read", outsider, OpProjectRead, false},
		{"outsider cannot chat", outsider, OpChat, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newSvc().Authorize(ctx, tc.user, tc.op, scope)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAccessService_Authorize_NilUser(t *testing.T) {
	svc := NewAccessService(&MockRoleRepo{}, &MockMemberRepo{}, &MockProjectRepo{}, nil, time.Minute)
	err := svc.Authorize(context.Background(), nil, OpProjectRead, Scope{ProjectID: uuid.New()})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAccessService_HasPermission_CachesInRedis(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	roles := &MockRoleRepo{}
	roles.On("ListUserPermissions", ctx, userID).
		Return([]string{model.PermProjectCreate}, nil).Once()

	svc := NewAccessService(roles, &MockMemberRepo{}, &MockProjectRepo{}, rdb, time.Minute)

	ok, err := svc.HasPermission(ctx, userID, model.PermProjectCreate)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Second lookup is served from the cache; the repo expectation is Once.
	ok, err = svc.HasPermission(ctx, userID, model.PermProjectCreate)
	assert.NoError(t, err)
	assert.True(t, ok)
	roles.AssertExpectations(t)

	ok, err = svc.HasPermission(ctx, userID, model.PermRoleManage)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessService_InvalidatePermissions_DropsCache(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	roles := &MockRoleRepo{}
	roles.On("ListUserPermissions", ctx, userID).
		Return([]string{model.PermProjectCreate}, nil).Once()
	svc := NewAccessService(roles, &MockMemberRepo{}, &MockProjectRepo{}, rdb, time.Minute)

	_, err := svc.HasPermission(ctx, userID, model.PermProjectCreate)
	assert.NoError(t, err)
	assert.True(t, mr.Exists("perms:"+userID.String()))

	svc.InvalidatePermissions(ctx, userID)
	assert.False(t, mr.Exists("perms:"+userID.String()))

	// Next lookup goes back to the repo, now with an updated grant set.
	roles.On("ListUserPermissions", ctx, userID).
		Return([]string{model.PermProjectCreate, model.PermRoleManage}, nil).Once()
	ok, err := svc.HasPermission(ctx, userID, model.PermRoleManage)
	assert.NoError(t, err)
	assert.True(t, ok)
	roles.AssertExpectations(t)
}

func TestAccessService_RequireSystemRole(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: uuid.New()}

	roles := &MockRoleRepo{}
	roles.On("HasRole", ctx, user.ID, model.RoleProjectManager).Return(false, nil)
	svc := NewAccessService(roles, &MockMemberRepo{}, &MockProjectRepo{}, nil, time.Minute)

	assert.ErrorIs(t, svc.RequireSystemRole(ctx, user, model.RoleProjectManager), ErrForbidden)
	assert.ErrorIs(t, svc.RequireSystemRole(ctx, nil, model.RoleAdmin), ErrUnauthenticated)
}

func TestAccessService_RequireFunc(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: uuid.New()}
	svc := NewAccessService(&MockRoleRepo{}, &MockMemberRepo{}, &MockProjectRepo{}, nil, time.Minute)

	deny := func(ctx context.Context, u *model.User, s Scope) (bool, error) { return false, nil }
	allow := func(ctx context.Context, u *model.User, s Scope) (bool, error) { return true, nil }

	assert.ErrorIs(t, svc.RequireFunc(ctx, user, Scope{}, deny), ErrForbidden)
	assert.NoError(t, svc.RequireFunc(ctx, user, Scope{}, allow))
}
