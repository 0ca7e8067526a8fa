// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trackstore-backend/internal/i18n"
	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type errorMapping struct {
	target error
	status int
	code   string
	key    string
	args   []interface{}
}

// Order matters: specific not-found errors precede the generic one.
var errorMappings = []errorMapping{
	{services.ErrCodeNotFound, http.StatusNotFound, "NOT_FOUND", i18n.KeyCodeNotFound, nil},
	{services.ErrFileNotFound, http.StatusNotFound, "NOT_FOUND", i18n.KeyItemFileNotFound, nil},
	{services.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", i18n.KeyUserNotFound, nil},
	{services.ErrFavoriteNotFound, http.StatusNotFound, "NOT_FOUND", i18n.KeyFavoriteNotFound, nil},
	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND", i18n.KeyItemNotFound, nil},
	{services.ErrAlreadyFavorited, http.StatusBadRequest, "INVALID_REQUEST", i18n.KeyFavoriteExists, nil},
	{services.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST", i18n.KeyValidationInvalid, []interface{}{"request"}},
	{services.ErrAlreadyUsed, http.StatusConflict, "CODE_ALREADY_USED", i18n.KeyCodeAlreadyUsed, nil},
	{services.ErrExpired, http.StatusGone, "CODE_EXPIRED", i18n.KeyCodeExpired, nil},
	{services.ErrMismatch, http.StatusUnprocessableEntity, "CODE_MISMATCH", i18n.KeyCodeMismatch, nil},
	{services.ErrAlreadyOwned, http.StatusConflict, "ALREADY_OWNED", i18n.KeyEntitlementAlreadyOwned, nil},
	{services.ErrQuotaExceeded, http.StatusForbidden, "QUOTA_EXCEEDED", i18n.KeyEntitlementQuotaExceeded, nil},
	{services.ErrEntitlementRequired, http.StatusForbidden, "FORBIDDEN", i18n.KeyEntitlementRequired, nil},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN", i18n.KeyAuthForbidden, nil},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED", i18n.KeyAuthInvalidCredentials, nil},
	{services.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED", i18n.KeyAuthAccountDisabled, nil},
	{services.ErrUserExists, http.StatusConflict, "USER_EXISTS", i18n.KeyAuthUserExists, nil},
	{services.ErrTokenRevoked, http.StatusUnauthorized, "UNAUTHORIZED", i18n.KeyAuthInvalidToken, nil},
}

// respondError translates a service error into the API envelope.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(validationErrs))
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			var details interface{}
			if m.status == http.StatusBadRequest {
				details = err.Error()
			}
			utils.ErrorResponse(c, m.status, m.code, i18n.T(lang, m.key, m.args...), details)
			return
		}
	}

	logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled service error")
	utils.InternalErrorResponse(c, "")
}

// bindJSON decodes the body and writes a 400 response on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(dst)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// uuidParam parses a UUID path parameter and writes a 400 response on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated user id set by the auth middleware.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return userID, true
}
