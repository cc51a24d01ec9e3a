package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

type MemberHandler struct {
	svc      service.MemberService
	access   service.AccessService
	activity service.ActivityService
}

func NewMemberHandler(svc service.MemberService, access service.AccessService, activity service.ActivityService) *MemberHandler {
	return &MemberHandler{svc: svc, access: access, activity: activity}
}

type AddMemberReq struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required,oneof=member manager admin"`
}

type UpdateMemberReq struct {
	Role string `json:"role" binding:"required,oneof=member manager admin"`
}

func (h *MemberHandler) AddMember(c *gin.Context) {
	req := AddMemberReq{}
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

	if err := h.access.Authorize(ctx, user, service.OpMemberManage, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	m, err := h.svc.Add(ctx, projectID, req.UserID, req.Role)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionMemberAdd, model.EntityMember, req.UserID)

	c.JSON(http.StatusCreated, serializer.Response{Data: m})
}

func (h *MemberHandler) GetMembers(c *gin.Context) {
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

	members, err := h.svc.List(ctx, projectID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: members})
}

func (h *MemberHandler) UpdateMember(c *gin.Context) {
	req := UpdateMemberReq{}
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
	memberUserID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpMemberManage, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	m, err := h.svc.UpdateRole(ctx, projectID, memberUserID, req.Role)
	if err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionMemberUpdate, model.EntityMember, memberUserID)

	c.JSON(http.StatusOK, serializer.Response{Data: m})
}

func (h *MemberHandler) RemoveMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	memberUserID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpMemberManage, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	if err := h.svc.Remove(ctx, projectID, memberUserID); err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionMemberRemove, model.EntityMember, memberUserID)

	c.JSON(http.StatusOK, serializer.Response{Msg: "removed"})
}
