// internal/middleware/policy.go
package middleware

import "github.com/javajoker/trackstore-backend/internal/models"

type Capability string

const (
	CapCatalogRead     Capability = "catalog.read"
	CapCatalogManage   Capability = "catalog.manage"
	CapCodesIssue      Capability = "codes.issue"
	CapPurchaseRedeem  Capability = "purchase.redeem"
	CapContentDownload Capability = "content.download"
	CapContentStream   Capability = "content.stream"
	CapUsersManage     Capability = "users.manage"
)

// AllCapabilities lists every capability known to the policy.
var AllCapabilities = []Capability{
	CapCatalogRead,
	CapCatalogManage,
	CapCodesIssue,
	CapPurchaseRedeem,
	CapContentDownload,
	CapContentStream,
	CapUsersManage,
}

// policy is the single source of truth for what each role may do.
// Administrators are granted everything in Allowed.
var policy = map[models.UserRole]map[Capability]bool{
	models.UserRoleArtist: {
		CapCatalogRead:   true,
		CapCatalogManage: true,
		CapCodesIssue:    true,
	},
	models.UserRoleClient: {
		CapCatalogRead:     true,
		CapPurchaseRedeem:  true,
		CapContentDownload: true,
		CapContentStream:   true,
	},
}

func Allowed(role string, capability Capability) bool {
	r := models.UserRole(role)
	if r == models.UserRoleAdmin {
		return true
	}
	return policy[r][capability]
}
