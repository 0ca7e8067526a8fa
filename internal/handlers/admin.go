// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	// Build filter parameters
	filter := services.AdminUserFilter{
		PaginationParams: params,
	}

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}

	if isActive := c.Query("is_active"); isActive != "" {
		if v, err := strconv.ParseBool(isActive); err == nil {
			filter.IsActive = &v
		}
	}

	users, total, err := h.adminService.ListUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(users, total, params)
	utils.PaginatedResponse(c, result)
}

// PUT /v1/admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.SetUserActive(c.Request.Context(), adminID, userID, *req.IsActive, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}
