package service

import (
	"context"
	"time"

	"github.com/covalent-team/covalent/internal/infra/provider"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProviderClient is a mock implementation of provider.Client
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) CreateVectorStore(ctx context.Context, name string) (*provider.VectorStore, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.VectorStore), args.Error(1)
}

func (m *MockProviderClient) UpdateVectorStore(ctx context.Context, id, name string) (*provider.VectorStore, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.VectorStore), args.Error(1)
}

func (m *MockProviderClient) DeleteVectorStore(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProviderClient) CreateAssistant(ctx context.Context, params provider.AssistantParams) (*provider.Assistant, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Assistant), args.Error(1)
}

func (m *MockProviderClient) RetrieveAssistant(ctx context.Context, id string) (*provider.Assistant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Assistant), args.Error(1)
}

func (m *MockProviderClient) UpdateAssistant(ctx context.Context, id string, params provider.AssistantParams) (*provider.Assistant, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Assistant), args.Error(1)
}

func (m *MockProviderClient) DeleteAssistant(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProviderClient) UploadFile(ctx context.Context, filename string, data []byte) (*provider.File, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.File), args.Error(1)
}

func (m *MockProviderClient) DeleteFile(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProviderClient) AddFileToVectorStore(ctx context.Context, storeID, fileID string) error {
	args := m.Called(ctx, storeID, fileID)
	return args.Error(0)
}

func (m *MockProviderClient) AddFileBatchToVectorStore(ctx context.Context, storeID string, fileIDs []string) (*provider.FileBatch, error) {
	args := m.Called(ctx, storeID, fileIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.FileBatch), args.Error(1)
}

func (m *MockProviderClient) RemoveFileFromVectorStore(ctx context.Context, storeID, fileID string) error {
	args := m.Called(ctx, storeID, fileID)
	return args.Error(0)
}

func (m *MockProviderClient) CreateThread(ctx context.Context) (*provider.Thread, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Thread), args.Error(1)
}

func (m *MockProviderClient) CreateMessage(ctx context.Context, threadID, role, content string) (*provider.Message, error) {
	args := m.Called(ctx, threadID, role, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Message), args.Error(1)
}

func (m *MockProviderClient) ListMessages(ctx context.Context, threadID string, runID string) ([]provider.Message, error) {
	args := m.Called(ctx, threadID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Message), args.Error(1)
}

func (m *MockProviderClient) CreateRun(ctx context.Context, threadID, assistantID string) (*provider.Run, error) {
	args := m.Called(ctx, threadID, assistantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Run), args.Error(1)
}

func (m *MockProviderClient) RetrieveRun(ctx context.Context, threadID, runID string) (*provider.Run, error) {
	args := m.Called(ctx, threadID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Run), args.Error(1)
}

// MockProjectRepo is a mock implementation of repo.ProjectRepo
type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) Create(ctx context.Context, p *model.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepo) GetByAssistantID(ctx context.Context, assistantID uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, assistantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Project, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Project), args.Error(1)
}

func (m *MockProjectRepo) Update(ctx context.Context, p *model.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectRepo) CreateDocumentIndex(ctx context.Context, idx *model.DocumentIndex) error {
	args := m.Called(ctx, idx)
	return args.Error(0)
}

func (m *MockProjectRepo) CreateAssistant(ctx context.Context, a *model.Assistant) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockProjectRepo) GetAssistant(ctx context.Context, id uuid.UUID) (*model.Assistant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Assistant), args.Error(1)
}

func (m *MockProjectRepo) GetDocumentIndex(ctx context.Context, id uuid.UUID) (*model.DocumentIndex, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentIndex), args.Error(1)
}

func (m *MockProjectRepo) UpdateDocumentIndex(ctx context.Context, idx *model.DocumentIndex) error {
	args := m.Called(ctx, idx)
	return args.Error(0)
}

func (m *MockProjectRepo) UpdateAssistant(ctx context.Context, a *model.Assistant) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockProjectRepo) DeleteAssistant(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectRepo) DeleteDocumentIndex(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectRepo) ClearResourceIDs(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *MockProjectRepo) SetResourceIDs(ctx context.Context, projectID uuid.UUID, indexID, assistantID *uuid.UUID) error {
	args := m.Called(ctx, projectID, indexID, assistantID)
	return args.Error(0)
}

// MockFileRepo is a mock implementation of repo.FileRepo
type MockFileRepo struct {
	mock.Mock
}

func (m *MockFileRepo) Create(ctx context.Context, f *model.File) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFileRepo) Associate(ctx context.Context, a *model.FileAssociation) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockFileRepo) RemoveAssociations(ctx context.Context, fileID uuid.UUID, associableType model.AssociableType, associableID uuid.UUID) error {
	args := m.Called(ctx, fileID, associableType, associableID)
	return args.Error(0)
}

func (m *MockFileRepo) CountAssociations(ctx context.Context, fileID uuid.UUID) (int64, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileRepo) ListFileIDsForAssociable(ctx context.Context, associableType model.AssociableType, associableID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, associableType, associableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockFileRepo) ListFilesForAssociable(ctx context.Context, associableType model.AssociableType, associableID uuid.UUID) ([]*model.File, error) {
	args := m.Called(ctx, associableType, associableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.File), args.Error(1)
}

// MockThreadRepo is a mock implementation of repo.ThreadRepo
type MockThreadRepo struct {
	mock.Mock
}

func (m *MockThreadRepo) Create(ctx context.Context, t *model.Thread) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockThreadRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Thread), args.Error(1)
}

func (m *MockThreadRepo) ListForProject(ctx context.Context, projectID uuid.UUID) ([]*model.Thread, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Thread), args.Error(1)
}

func (m *MockThreadRepo) ListIDsForProject(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockThreadRepo) Rename(ctx context.Context, id uuid.UUID, title string) error {
	args := m.Called(ctx, id, title)
	return args.Error(0)
}

func (m *MockThreadRepo) SetProviderThreadID(ctx context.Context, id uuid.UUID, providerThreadID string) error {
	args := m.Called(ctx, id, providerThreadID)
	return args.Error(0)
}

func (m *MockThreadRepo) AddTokenUsage(ctx context.Context, id uuid.UUID, prompt, completion, total int) error {
	args := m.Called(ctx, id, prompt, completion, total)
	return args.Error(0)
}

func (m *MockThreadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMessageRepo is a mock implementation of repo.MessageRepo
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) CreateIfAbsent(ctx context.Context, msg *model.Message) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepo) ListForThreadAfter(ctx context.Context, threadID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]*model.Message, error) {
	args := m.Called(ctx, threadID, after, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForRun(ctx context.Context, threadID uuid.UUID, runID string) ([]*model.Message, error) {
	args := m.Called(ctx, threadID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

// MockMemberRepo is a mock implementation of repo.MemberRepo
type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) Add(ctx context.Context, mem *model.ProjectMember) error {
	args := m.Called(ctx, mem)
	return args.Error(0)
}

func (m *MockMemberRepo) Get(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error) {
	args := m.Called(ctx, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectMember), args.Error(1)
}

func (m *MockMemberRepo) List(ctx context.Context, projectID uuid.UUID) ([]*model.ProjectMember, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ProjectMember), args.Error(1)
}

func (m *MockMemberRepo) UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role model.ProjectRole) error {
	args := m.Called(ctx, projectID, userID, role)
	return args.Error(0)
}

func (m *MockMemberRepo) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *MockMemberRepo) CountByRole(ctx context.Context, projectID uuid.UUID, role model.ProjectRole) (int64, error) {
	args := m.Called(ctx, projectID, role)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepo is a mock implementation of repo.UserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) GetByAPIKeyHMAC(ctx context.Context, hmac string) (*model.User, error) {
	args := m.Called(ctx, hmac)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockRoleRepo is a mock implementation of repo.RoleRepo
type MockRoleRepo struct {
	mock.Mock
}

func (m *MockRoleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleRepo) List(ctx context.Context) ([]*model.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Role), args.Error(1)
}

func (m *MockRoleRepo) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Role), args.Error(1)
}

func (m *MockRoleRepo) ListUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRoleRepo) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	args := m.Called(ctx, userID, roleID)
	return args.Error(0)
}

func (m *MockRoleRepo) RevokeRole(ctx context.Context, userID, roleID uuid.UUID) error {
	args := m.Called(ctx, userID, roleID)
	return args.Error(0)
}

func (m *MockRoleRepo) CountAssignments(ctx context.Context, roleID uuid.UUID) (int64, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoleRepo) HasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error) {
	args := m.Called(ctx, userID, roleName)
	return args.Bool(0), args.Error(1)
}

// MockActivityRepo is a mock implementation of repo.ActivityRepo
type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Append(ctx context.Context, e *model.ActivityLog) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockActivityRepo) ListForEntities(ctx context.Context, refs []repo.EntityRef, limit, offset int) ([]*model.ActivityLog, error) {
	args := m.Called(ctx, refs, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ActivityLog), args.Error(1)
}

// MockProvisionService is a mock implementation of ProvisionService
type MockProvisionService struct {
	mock.Mock
}

func (m *MockProvisionService) Provision(ctx context.Context, projectID uuid.UUID, name, description string) (*ProvisionResult, error) {
	args := m.Called(ctx, projectID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProvisionResult), args.Error(1)
}

func (m *MockProvisionService) Update(ctx context.Context, assistantID uuid.UUID, name, description string, customName *string) (*model.Assistant, error) {
	args := m.Called(ctx, assistantID, name, description, customName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Assistant), args.Error(1)
}

func (m *MockProvisionService) Customize(ctx context.Context, assistantID uuid.UUID, name, instructions *string) (*model.Assistant, error) {
	args := m.Called(ctx, assistantID, name, instructions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Assistant), args.Error(1)
}

func (m *MockProvisionService) VerifyLinkage(ctx context.Context, assistantID, documentIndexID uuid.UUID) (*LinkageReport, error) {
	args := m.Called(ctx, assistantID, documentIndexID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LinkageReport), args.Error(1)
}

func (m *MockProvisionService) Teardown(ctx context.Context, project *model.Project) *CleanupReport {
	args := m.Called(ctx, project)
	return args.Get(0).(*CleanupReport)
}

// MockAccessService is a mock implementation of AccessService
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) Authorize(ctx context.Context, user *model.User, op Operation, scope Scope) error {
	args := m.Called(ctx, user, op, scope)
	return args.Error(0)
}

func (m *MockAccessService) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) RequireSystemRole(ctx context.Context, user *model.User, roleName string) error {
	args := m.Called(ctx, user, roleName)
	return args.Error(0)
}

func (m *MockAccessService) RequireProjectRole(ctx context.Context, user *model.User, projectID uuid.UUID, roles ...model.ProjectRole) error {
	args := m.Called(ctx, user, projectID, roles)
	return args.Error(0)
}

func (m *MockAccessService) RequireFunc(ctx context.Context, user *model.User, scope Scope, guard Guard) error {
	args := m.Called(ctx, user, scope, guard)
	return args.Error(0)
}

func (m *MockAccessService) InvalidatePermissions(ctx context.Context, userID uuid.UUID) {
	m.Called(ctx, userID)
}
