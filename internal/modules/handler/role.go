package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

// RoleHandler serves the system-role administration routes. Every route
// requires the ADMIN role or the role.manage permission.
type RoleHandler struct {
	svc      service.RoleService
	access   service.AccessService
	activity service.ActivityService
}

func NewRoleHandler(svc service.RoleService, access service.AccessService, activity service.ActivityService) *RoleHandler {
	return &RoleHandler{svc: svc, access: access, activity: activity}
}

type AssignRoleReq struct {
	Role string `json:"role" binding:"required"`
}

func (h *RoleHandler) authorize(c *gin.Context) (*model.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	ctx := c.Request.Context()
	if err := h.access.Authorize(ctx, user, service.OpRoleManage, service.Scope{}); err != nil {
		abortErr(c, err)
		return nil, false
	}
	return user, true
}

func (h *RoleHandler) GetRoles(c *gin.Context) {
	if _, ok := h.authorize(c); !ok {
		return
	}
	roles, err := h.svc.List(c.Request.Context())
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: roles})
}

func (h *RoleHandler) AssignRole(c *gin.Context) {
	req := AssignRoleReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	admin, ok := h.authorize(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.svc.Assign(ctx, userID, req.Role); err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, admin.ID, model.ActionRoleAssign, model.EntityUser, userID)

	roles, err := h.svc.ListUserRoles(ctx, userID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: roles})
}

func (h *RoleHandler) RevokeRole(c *gin.Context) {
	admin, ok := h.authorize(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	roleName := c.Param("role")
	if roleName == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("missing role", nil))
		return
	}
	ctx := c.Request.Context()

	if err := h.svc.Revoke(ctx, userID, roleName); err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, admin.ID, model.ActionRoleRevoke, model.EntityUser, userID)

	c.JSON(http.StatusOK, serializer.Response{Msg: "revoked"})
}
