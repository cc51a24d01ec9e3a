package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/covalent-team/covalent/internal/middleware"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

// abortErr translates service errors into the response envelope. Provider
// failures surface as 500 with the upstream detail kept out of the client
// message.
func abortErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, serializer.ForbiddenErr(""))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr(err.Error(), nil))
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrProjectClosed),
		errors.Is(err, service.ErrNotProvisioned),
		errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, service.ErrLastManager):
		c.JSON(http.StatusBadRequest, serializer.ParamErr(err.Error(), nil))
	case service.IsProviderError(err):
		c.JSON(http.StatusInternalServerError, serializer.Err(http.StatusInternalServerError, "ai provider error", err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}

func currentUser(c *gin.Context) (*model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
	}
	return user, ok
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}
