package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/serializer"
	"github.com/covalent-team/covalent/internal/modules/service"
)

type FileHandler struct {
	svc      service.IngestService
	access   service.AccessService
	activity service.ActivityService
}

func NewFileHandler(svc service.IngestService, access service.AccessService, activity service.ActivityService) *FileHandler {
	return &FileHandler{svc: svc, access: access, activity: activity}
}

// UploadFiles ingests one or more documents posted as the multipart "files"
// field. The batch is processed per-file: a failed file lands in the failed
// list with its reason while the rest proceed.
func (h *FileHandler) UploadFiles(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.access.Authorize(ctx, user, service.OpFileUpload, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("at least one file is required", nil))
		return
	}

	inputs := make([]service.IngestInput, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("unreadable file "+fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("unreadable file "+fh.Filename, err))
			return
		}
		inputs = append(inputs, service.IngestInput{Name: fh.Filename, Data: data})
	}

	res, err := h.svc.Ingest(ctx, projectID, user.ID, inputs)
	if err != nil {
		abortErr(c, err)
		return
	}
	for _, f := range res.Succeeded {
		h.activity.Record(ctx, user.ID, model.ActionFileUpload, model.EntityFile, f.ID)
	}

	status := http.StatusCreated
	if len(res.Succeeded) == 0 {
		// Nothing made it through; the per-file errors say why.
		status = http.StatusBadRequest
	}
	c.JSON(status, serializer.Response{Data: res})
}

func (h *FileHandler) GetFiles(c *gin.Context) {
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

	files, err := h.svc.ListForProject(ctx, projectID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: files})
}

type DeleteFileReq struct {
	FileID uuid.UUID `form:"file_id" binding:"required"`
}

func (h *FileHandler) DeleteFile(c *gin.Context) {
	req := DeleteFileReq{}
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

	if err := h.access.Authorize(ctx, user, service.OpFileDelete, service.Scope{ProjectID: projectID}); err != nil {
		abortErr(c, err)
		return
	}

	if err := h.svc.Remove(ctx, projectID, req.FileID); err != nil {
		abortErr(c, err)
		return
	}
	h.activity.Record(ctx, user.ID, model.ActionFileDelete, model.EntityFile, req.FileID)

	c.JSON(http.StatusOK, serializer.Response{Msg: "deleted"})
}
