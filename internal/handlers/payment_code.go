// internal/handlers/payment_code.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type PaymentCodeHandler struct {
	codeService *services.PaymentCodeService
}

func NewPaymentCodeHandler(codeService *services.PaymentCodeService) *PaymentCodeHandler {
	return &PaymentCodeHandler{
		codeService: codeService,
	}
}

// POST /v1/artist/items/:id/codes
func (h *PaymentCodeHandler) IssueCode(c *gin.Context) {
	artistID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	// The body is optional; an empty one selects the default expiry
	var req services.IssueCodeRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	code, err := h.codeService.IssueCode(c.Request.Context(), artistID, itemID, req.ExpiryHours)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, code)
}

// GET /v1/artist/codes
func (h *PaymentCodeHandler) ListCodes(c *gin.Context) {
	artistID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	codes, total, err := h.codeService.ListCodes(c.Request.Context(), artistID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(codes, total, params)
	utils.PaginatedResponse(c, result)
}
