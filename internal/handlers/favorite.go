// internal/handlers/favorite.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type FavoriteHandler struct {
	favoriteService *services.FavoriteService
}

func NewFavoriteHandler(favoriteService *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{
		favoriteService: favoriteService,
	}
}

// POST /v1/favorites
func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.AddFavoriteRequest
	if !bindJSON(c, &req) {
		return
	}

	favorite, err := h.favoriteService.AddFavorite(c.Request.Context(), userID, req.ItemID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, favorite)
}

// GET /v1/favorites
func (h *FavoriteHandler) ListFavorites(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	favorites, total, err := h.favoriteService.ListFavorites(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(favorites, total, params))
}

// DELETE /v1/favorites/:id
func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	favoriteID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.favoriteService.RemoveFavorite(c.Request.Context(), userID, favoriteID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"id": favoriteID})
}
