package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

type ThreadHandler struct {
	svc      service.ChatService
	access   service.AccessService
	activity service.ActivityService
}

func NewThreadHandler(svc service.ChatService, access service.AccessService, activity service.ActivityService) *ThreadHandler {
	return &ThreadHandler{svc: svc, access: access, activity: activity}
}

type CreateThreadReq struct {
	Title string `json:"title" binding:"max=255"`
}

type RenameThreadReq struct {
	Title string `json:"title" binding:"required,min=1,max=255"`
}

type SendMessageReq struct {
	Content string `json:"content" binding:"required,min=1"`
}

type GetMessagesReq struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// authorizeThread loads the thread and checks the chat operation against
// its owning project.
func (h *ThreadHandler) authorizeThread(c *gin.Context, user *model.User, threadID uuid.UUID) (*model.Thread, bool) {
	ctx := c.Request.Context()
	thread, err := h.svc.GetThread(ctx, threadID)
	if err != nil {
		abortErr(c, err)
		return nil, false
	}
	if err := h.access.Authorize(ctx, user, service.OpChat, service.Scope{ProjectID: thread.ProjectID}); err != nil {
		abortErr(c, err)
		return nil, false
	}
	return thread, true
}

func (h *ThreadHandler) CreateThread(c *gin.Context) {
	req := CreateThreadReq{}
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

	if err := h.access.Authorize(ctx, user, service.OpChat, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	thread, err := h.svc.CreateThread(ctx, projectID, user.ID, req.Title)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionThreadCreate, model.EntityThread, thread.ID)

	c.JSON(http.StatusCreated, serializer.Response{Data: thread})
}

func (h *ThreadHandler) GetThreads(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpChat, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	threads, err := h.svc.ListThreads(ctx, projectID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: threads})
}

func (h *ThreadHandler) RenameThread(c *gin.Context) {
	req := RenameThreadReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	thread, ok := h.authorizeThread(c, user, threadID)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.svc.RenameThread(ctx, threadID, req.Title); err != nil {
		abortErr(c, err)
		return
	}
	thread.Title = req.Title
	h.activity.Record(ctx, user.ID, model.ActionThreadRename, model.EntityThread, threadID)

	c.JSON(http.StatusOK, serializer.Response{Data: thread})
}

func (h *ThreadHandler) DeleteThread(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.authorizeThread(c, user, threadID); !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.svc.DeleteThread(ctx, threadID); err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionThreadDelete, model.EntityThread, threadID)

	c.JSON(http.StatusOK, serializer.Response{Msg: "deleted"})
}

func (h *ThreadHandler) GetMessages(c *gin.Context) {
	req := GetMessagesReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.authorizeThread(c, user, threadID); !ok {
		return
	}

	page, err := h.svc.ListMessages(c.Request.Context(), threadID, req.Cursor, req.Limit)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: page})
}

// SendMessage appends a user message and starts one assistant run. The
// response carries the pending run handle; the client polls the run route
// until it turns terminal.
func (h *ThreadHandler) SendMessage(c *gin.Context) {
	req := SendMessageReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.authorizeThread(c, user, threadID); !ok {
		return
	}
	ctx := c.Request.Context()

	res, err := h.svc.SendMessage(ctx, threadID, user.ID, req.Content)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionMessageSend, model.EntityThread, threadID)

	c.JSON(http.StatusCreated, serializer.Response{Data: res})
}

// GetRun is the poll endpoint: one provider status check per call, with the
// harvested messages included once the run has completed.
func (h *ThreadHandler) GetRun(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	runID := c.Param("runId")
	if runID == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("missing runId", nil))
		return
	}
	if _, ok := h.authorizeThread(c, user, threadID); !ok {
		return
	}

	res, err := h.svc.CheckRunStatus(c.Request.Context(), threadID, runID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: res})
}
