package service

import (
	"context"
	"testing"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func newMemberFixture() (*MockMemberRepo, *MockProjectRepo, *MockUserRepo, *MockAccessService, MemberService) {
	members := &MockMemberRepo{}
	projects := &MockProjectRepo{}
	users := &MockUserRepo{}
	access := &MockAccessService{}
	svc := NewMemberService(members, projects, users, access)
	return members, projects, users, access, svc
}

func TestMemberService_Add(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	userID := uuid.New()

	members, projects, users, access, svc := newMemberFixture()
	projects.On("GetByID", ctx, projectID).Return(&model.Project{ID: projectID}, nil)
	users.On("GetByID", ctx, userID).Return(&model.User{ID: userID}, nil)
	members.On("Get", ctx, projectID, userID).Return(nil, gorm.ErrRecordNotFound)
	members.On("Add", ctx, mock.MatchedBy(func(m *model.ProjectMember) bool {
		return m.ProjectID == projectID && m.UserID == userID && m.Role == model.ProjectRoleManager
	})).Return(nil)
	access.On("InvalidatePermissions", ctx, userID).Return()

	m, err := svc.Add(ctx, projectID, userID, model.ProjectRoleManager)
	assert.NoError(t, err)
	assert.Equal(t, model.ProjectRoleManager, m.Role)
	access.AssertCalled(t, "InvalidatePermissions", ctx, userID)
}

func TestMemberService_Add_RejectsDuplicateAndBadRole(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	userID := uuid.New()

	members, projects, users, _, svc := newMemberFixture()

	_, err := svc.Add(ctx, projectID, userID, "owner")
	assert.ErrorIs(t, err, ErrValidation)

	projects.On("GetByID", ctx, projectID).Return(&model.Project{ID: projectID}, nil)
	users.On("GetByID", ctx, userID).Return(&model.User{ID: userID}, nil)
	members.On("Get", ctx, projectID, userID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: userID, Role: model.ProjectRoleMember,
	}, nil)

	_, err = svc.Add(ctx, projectID, userID, model.ProjectRoleMember)
	assert.ErrorIs(t, err, ErrValidation)
	members.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestMemberService_UpdateRole_RefusesDemotingLastManager(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	userID := uuid.New()

	members, _, _, _, svc := newMemberFixture()
	members.On("Get", ctx, projectID, userID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: userID, Role: model.ProjectRoleManager,
	}, nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleManager).Return(int64(1), nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleAdmin).Return(int64(0), nil)

	_, err := svc.UpdateRole(ctx, projectID, userID, model.ProjectRoleMember)
	assert.ErrorIs(t, err, ErrLastManager)
	members.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMemberService_UpdateRole_AllowsDemotionWithAnotherManager(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	userID := uuid.New()

	members, _, _, access, svc := newMemberFixture()
	members.On("Get", ctx, projectID, userID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: userID, Role: model.ProjectRoleManager,
	}, nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleManager).Return(int64(2), nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleAdmin).Return(int64(0), nil)
	members.On("UpdateRole", ctx, projectID, userID, model.ProjectRoleMember).Return(nil)
	access.On("InvalidatePermissions", ctx, userID).Return()

	m, err := svc.UpdateRole(ctx, projectID, userID, model.ProjectRoleMember)
	assert.NoError(t, err)
	assert.Equal(t, model.ProjectRoleMember, m.Role)
}

func TestMemberService_UpdateRole_SameRoleIsNoop(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	userID := uuid.New()

	members, _, _, _, svc := newMemberFixture()
	members.On("Get", ctx, projectID, userID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: userID, Role: model.ProjectRoleMember,
	}, nil)

	m, err := svc.UpdateRole(ctx, projectID, userID, model.ProjectRoleMember)
	assert.NoError(t, err)
	assert.Equal(t, model.ProjectRoleMember, m.Role)
	members.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMemberService_Remove_ProtectsLastManager(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	managerID := uuid.New()

	members, projects, _, _, svc := newMemberFixture()
	projects.On("GetByID", ctx, projectID).Return(&model.Project{
		ID: projectID, CreatorID: uuid.New(),
	}, nil)
	members.On("Get", ctx, projectID, managerID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: managerID, Role: model.ProjectRoleAdmin,
	}, nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleManager).Return(int64(0), nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleAdmin).Return(int64(1), nil)

	err := svc.Remove(ctx, projectID, managerID)
	assert.ErrorIs(t, err, ErrLastManager)
	members.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
}

func TestMemberService_Remove_CreatorLeavesOnceAnotherManagerExists(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	creatorID := uuid.New()

	members, projects, _, access, svc := newMemberFixture()
	projects.On("GetByID", ctx, projectID).Return(&model.Project{
		ID: projectID, CreatorID: creatorID,
	}, nil)
	members.On("Get", ctx, projectID, creatorID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: creatorID, Role: model.ProjectRoleManager,
	}, nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleManager).Return(int64(2), nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleAdmin).Return(int64(0), nil)
	members.On("Remove", ctx, projectID, creatorID).Return(nil)
	access.On("InvalidatePermissions", ctx, creatorID).Return()

	assert.NoError(t, svc.Remove(ctx, projectID, creatorID))
	members.AssertCalled(t, "Remove", ctx, projectID, creatorID)
}

func TestMemberService_Remove_SoleManagerCreatorStays(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	creatorID := uuid.New()

	members, projects, _, _, svc := newMemberFixture()
	projects.On("GetByID", ctx, projectID).Return(&model.Project{
		ID: projectID, CreatorID: creatorID,
	}, nil)
	members.On("Get", ctx, projectID, creatorID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: creatorID, Role: model.ProjectRoleManager,
	}, nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleManager).Return(int64(1), nil)
	members.On("CountByRole", ctx, projectID, model.ProjectRoleAdmin).Return(int64(0), nil)

	err := svc.Remove(ctx, projectID, creatorID)
	assert.ErrorIs(t, err, ErrLastManager)
	members.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
}

func TestMemberService_Remove_PlainMember(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	userID := uuid.New()

	members, projects, _, access, svc := newMemberFixture()
	projects.On("GetByID", ctx, projectID).Return(&model.Project{
		ID: projectID, CreatorID: uuid.New(),
	}, nil)
	members.On("Get", ctx, projectID, userID).Return(&model.ProjectMember{
		ProjectID: projectID, UserID: userID, Role: model.ProjectRoleMember,
	}, nil)
	members.On("Remove", ctx, projectID, userID).Return(nil)
	access.On("InvalidatePermissions", ctx, userID).Return()

	assert.NoError(t, svc.Remove(ctx, projectID, userID))
	members.AssertCalled(t, "Remove", ctx, projectID, userID)
}
