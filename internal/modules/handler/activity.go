package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

type ActivityHandler struct {
	svc    service.ActivityService
	access service.AccessService
}

func NewActivityHandler(svc service.ActivityService, access service.AccessService) *ActivityHandler {
	return &ActivityHandler{svc: svc, access: access}
}

type GetActivityReq struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=200"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// GetActivity returns the project timeline, newest first.
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	req := GetActivityReq{}
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

	if err := h.access.Authorize(ctx, user, service.OpProjectRead, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	entries, err := h.svc.QueryForProject(ctx, projectID, req.Limit, req.Offset)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: entries})
}
