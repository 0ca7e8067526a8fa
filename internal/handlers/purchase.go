// internal/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type PurchaseHandler struct {
	redemptionService *services.RedemptionService
}

func NewPurchaseHandler(redemptionService *services.RedemptionService) *PurchaseHandler {
	return &PurchaseHandler{
		redemptionService: redemptionService,
	}
}

// POST /v1/purchases
func (h *PurchaseHandler) Redeem(c *gin.Context) {
	holderID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.RedeemRequest
	if !bindJSON(c, &req) {
		return
	}

	entitlement, err := h.redemptionService.Redeem(c.Request.Context(), req.Code, req.ItemID, holderID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, entitlement)
}

// GET /v1/purchases
func (h *PurchaseHandler) ListPurchases(c *gin.Context) {
	holderID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	entitlements, total, err := h.redemptionService.ListPurchases(c.Request.Context(), holderID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(entitlements, total, params)
	utils.PaginatedResponse(c, result)
}
