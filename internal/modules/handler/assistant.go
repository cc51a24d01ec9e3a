package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

type AssistantHandler struct {
	provision service.ProvisionService
	projects  repo.ProjectRepo
	access    service.AccessService
	activity  service.ActivityService
}

func NewAssistantHandler(provision service.ProvisionService, projects repo.ProjectRepo, access service.AccessService, activity service.ActivityService) *AssistantHandler {
	return &AssistantHandler{provision: provision, projects: projects, access: access, activity: activity}
}

// SetupAI provisions the document index and assistant pair for a project.
// Safe to call again after a partial failure; it resumes from the missing
// half.
func (h *AssistantHandler) SetupAI(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpAISetup, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("project not found", nil))
			return
		}
		abortErr(c, err)
		return
	}

	res, err := h.provision.Provision(ctx, projectID, project.Name, project.Description)
	if err != nil {
		abortErr(c, err)
		return
	}
	if res.Created {
		h.activity.Record(ctx, user.ID, model.ActionProjectProvision, model.EntityProject, projectID)
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, serializer.Response{Data: res})
}

// VerifyAI reports whether the assistant's remote configuration still
// references the project's document index.
func (h *AssistantHandler) VerifyAI(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpAISetup, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("project not found", nil))
			return
		}
		abortErr(c, err)
		return
	}
	if !project.IsProvisioned() {
		abortErr(c, service.ErrNotProvisioned)
		return
	}

	report, err := h.provision.VerifyLinkage(ctx, *project.AssistantID, *project.DocumentIndexID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: report})
}

type UpdateAssistantReq struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=255"`
	Instructions *string `json:"instructions" binding:"omitempty,max=32000"`
}

// UpdateProjectAssistant customizes the assistant addressed through its
// owning project.
func (h *AssistantHandler) UpdateProjectAssistant(c *gin.Context) {
	req := UpdateAssistantReq{}
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

	if err := h.access.Authorize(ctx, user, service.OpAISetup, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("project not found", nil))
			return
		}
		abortErr(c, err)
		return
	}
	if project.AssistantID == nil {
		abortErr(c, service.ErrNotProvisioned)
		return
	}

	assistant, err := h.provision.Customize(ctx, *project.AssistantID, req.Name, req.Instructions)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionAssistantUpdate, model.EntityAssistant, assistant.ID)

	c.JSON(http.StatusOK, serializer.Response{Data: assistant})
}

// UpdateAssistant customizes an assistant addressed directly; authorization
// resolves through the owning project.
func (h *AssistantHandler) UpdateAssistant(c *gin.Context) {
	req := UpdateAssistantReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	assistantID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	project, err := h.projects.GetByAssistantID(ctx, assistantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("assistant not found", nil))
			return
		}
		abortErr(c, err)
		return
	}

	if err := h.access.Authorize(ctx, user, service.OpAISetup, service.Scope{ProjectID: project.ID}); err != nil {
		abortErr(c, err)
		return
	}

	assistant, err := h.provision.Customize(ctx, assistantID, req.Name, req.Instructions)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionAssistantUpdate, model.EntityAssistant, assistant.ID)

	c.JSON(http.StatusOK, serializer.Response{Data: assistant})
}
