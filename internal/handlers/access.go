// internal/handlers/access.go
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/storage"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type AccessHandler struct {
	accessService *services.AccessService
}

func NewAccessHandler(accessService *services.AccessService) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
	}
}

// GET /v1/items/:id/download
func (h *AccessHandler) Download(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	grant, err := h.accessService.AuthorizeDownload(c.Request.Context(), itemID, userID, services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer grant.Blob.Close()

	if remaining := grant.Remaining(); remaining >= 0 {
		c.Header("X-Downloads-Remaining", strconv.Itoa(remaining))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(grant.Item.Title, grant.Item.FileKey)))
	writeBlob(c, grant.Blob, "application/octet-stream")
}

// GET /v1/items/:id/stream
func (h *AccessHandler) Stream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	grant, err := h.accessService.AuthorizeStream(c.Request.Context(), itemID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer grant.Blob.Close()

	contentType := grant.Blob.ContentType
	if contentType == "" {
		contentType = grant.Item.ContentType
	}
	writeBlob(c, grant.Blob, contentType)
}

// POST /v1/items/:id/plays
func (h *AccessHandler) RecordPlay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.RecordPlayRequest
	if !bindJSON(c, &req) {
		return
	}

	play, err := h.accessService.RecordPlay(c.Request.Context(), itemID, userID, req.DurationPlayed)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, play)
}

func writeBlob(c *gin.Context, blob *storage.Blob, contentType string) {
	c.Header("Content-Type", contentType)
	if blob.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(blob.Size, 10))
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, blob); err != nil {
		// Headers are already sent; the client sees a truncated body.
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Warn("Blob transfer interrupted")
	}
}

func downloadName(title, key string) string {
	ext := path.Ext(key)
	if title == "" {
		return path.Base(key)
	}
	return title + ext
}

// GET /v1/plays
func (h *AccessHandler) ListPlays(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	plays, total, err := h.accessService.ListPlays(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(plays, total, params))
}
