// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

const maxAuditBody = 64 * 1024

// Request fields never written to the audit log.
var redactedFields = map[string]bool{
	"password":         true,
	"current_password": true,
	"new_password":     true,
	"code":             true,
	"token":            true,
}

// AuditLogMiddleware records every mutating request once the handler has
// finished. The row is written before the response is released.
func AuditLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for read-only requests and health checks
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions ||
			c.Request.Method == http.MethodHead || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		// Read JSON request body; uploads are not captured
		var requestData map[string]interface{}
		if strings.HasPrefix(c.ContentType(), "application/json") && c.Request.Body != nil &&
			c.Request.ContentLength >= 0 && c.Request.ContentLength <= maxAuditBody {
			requestBody, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			if len(requestBody) > 0 {
				json.Unmarshal(requestBody, &requestData)
			}
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// Create audit log
		auditLog := &models.AuditLog{
			Action:       c.Request.Method + " " + route,
			ResourceType: extractResourceType(c.Request.URL.Path),
			StatusCode:   c.Writer.Status(),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			NewValues:    redact(requestData),
		}
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			auditLog.UserID = &userID
		}

		// Extract resource ID from URL if present
		if resourceID := extractResourceID(c.Request.URL.Path); resourceID != "" {
			if parsed, err := uuid.Parse(resourceID); err == nil {
				auditLog.ResourceID = &parsed
			}
		}

		if err := db.WithContext(c.Request.Context()).Create(auditLog).Error; err != nil {
			logrus.WithError(err).Error("Failed to create audit log")
		}
	}
}

func redact(data map[string]interface{}) models.JSONB {
	if data == nil {
		return nil
	}
	out := make(models.JSONB, len(data))
	for k, v := range data {
		if redactedFields[strings.ToLower(k)] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, part := range parts {
		if _, err := uuid.Parse(part); err == nil {
			return part
		}
	}
	return ""
}

// RequestLogger writes one structured log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   duration.Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			fields["user_id"] = userID
		}

		entry := logrus.WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request processed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}
