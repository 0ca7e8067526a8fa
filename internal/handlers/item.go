// internal/handlers/item.go
package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/trackstore-backend/internal/i18n"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type ItemHandler struct {
	catalogService *services.CatalogService
}

func NewItemHandler(catalogService *services.CatalogService) *ItemHandler {
	return &ItemHandler{
		catalogService: catalogService,
	}
}

// GET /v1/catalog/items
func (h *ItemHandler) ListCatalog(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.CatalogFilter{
		PaginationParams: params,
		Genre:            c.Query("genre"),
	}

	if isFree := c.Query("is_free"); isFree != "" {
		if v, err := strconv.ParseBool(isFree); err == nil {
			filter.IsFree = &v
		}
	}

	items, total, err := h.catalogService.ListPublished(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(items, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /v1/catalog/items/:id
func (h *ItemHandler) GetCatalogItem(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	item, err := h.catalogService.GetPublishedItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, item)
}

// POST /v1/artist/items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	artistID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateItemRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyItemInvalid), err.Error())
		return
	}

	// Price arrives as a decimal string in multipart forms
	if raw := c.PostForm("price"); raw != "" {
		price, err := models.ParseMoney(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyItemInvalid), err.Error())
			return
		}
		req.Price = price
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyItemUploadInvalid), err.Error())
		return
	}
	defer file.Close()

	item, err := h.catalogService.CreateItem(c.Request.Context(), artistID, &req, &services.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, item)
}

// GET /v1/artist/items
func (h *ItemHandler) ListArtistItems(c *gin.Context) {
	artistID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	items, total, err := h.catalogService.ListArtistItems(c.Request.Context(), artistID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(items, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /v1/artist/items/:id
func (h *ItemHandler) GetArtistItem(c *gin.Context) {
	artistID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	item, err := h.catalogService.GetItem(c.Request.Context(), artistID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, item)
}

// PUT /v1/artist/items/:id
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	artistID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.catalogService.UpdateItem(c.Request.Context(), artistID, itemID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, item)
}

// POST /v1/artist/items/:id/publish
func (h *ItemHandler) PublishItem(c *gin.Context) {
	h.transition(c, h.catalogService.PublishItem)
}

// POST /v1/artist/items/:id/archive
func (h *ItemHandler) ArchiveItem(c *gin.Context) {
	h.transition(c, h.catalogService.ArchiveItem)
}

type itemTransition func(ctx context.Context, artistID, itemID uuid.UUID) (*models.Item, error)

func (h *ItemHandler) transition(c *gin.Context, fn itemTransition) {
	artistID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	item, err := fn(c.Request.Context(), artistID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, item)
}
