package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

type ProjectHandler struct {
	svc      service.ProjectService
	access   service.AccessService
	activity service.ActivityService
}

func NewProjectHandler(svc service.ProjectService, access service.AccessService, activity service.ActivityService) *ProjectHandler {
	return &ProjectHandler{svc: svc, access: access, activity: activity}
}

type CreateProjectReq struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=4000"`
}

type UpdateProjectReq struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=4000"`
	Status      *string `json:"status" binding:"omitempty,oneof=active completed archived"`
}

// CreateProject creates a project and enrolls the caller as its manager.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := CreateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpProjectCreate, service.Scope{}); err != nil {
		abortErr(c, err)
		return
	}

	project, err := h.svc.Create(ctx, user.ID, req.Name, req.Description)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionProjectCreate, model.EntityProject, project.ID)

	c.JSON(http.StatusCreated, serializer.Response{Data: project})
}

// GetProjects lists every project the caller belongs to or created.
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	projects, err := h.svc.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: projects})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpProjectRead, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	project, err := h.svc.Get(ctx, projectID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: project})
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	req := UpdateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpProjectRename, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	project, err := h.svc.Update(ctx, projectID, service.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionProjectUpdate, model.EntityProject, project.ID)

	c.JSON(http.StatusOK, serializer.Response{Data: project})
}

type DeleteProjectResp struct {
	AIResourcesCleanup *service.CleanupReport `json:"ai_resources_cleanup"`
}

// DeleteProject tears down the project's AI resources best-effort and then
// removes the project. Partial remote cleanup is reported, not fatal.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpProjectDelete, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	res, err := h.svc.Delete(ctx, projectID)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionProjectDelete, model.EntityProject, projectID)

	c.JSON(http.StatusOK, serializer.Response{Data: DeleteProjectResp{AIResourcesCleanup: res.Cleanup}})
}
