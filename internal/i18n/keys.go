// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyInternalError = "internal_error"
	KeyRateLimited   = "rate_limited"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthAccountDisabled    = "auth.account_disabled"
	KeyAuthForbidden          = "auth.forbidden"
	KeyAuthLoggedOut          = "auth.logged_out"

	// Users
	KeyUserNotFound = "user.not_found"

	// Catalog
	KeyItemNotFound      = "item.not_found"
	KeyItemInvalid       = "item.invalid"
	KeyItemFileNotFound  = "item.file_not_found"
	KeyItemUploadInvalid = "item.upload_invalid"

	// Payment codes
	KeyCodeNotFound    = "payment_code.not_found"
	KeyCodeAlreadyUsed = "payment_code.already_used"
	KeyCodeExpired     = "payment_code.expired"
	KeyCodeMismatch    = "payment_code.mismatch"

	// Entitlements
	KeyEntitlementAlreadyOwned  = "entitlement.already_owned"
	KeyEntitlementRequired      = "entitlement.required"
	KeyEntitlementQuotaExceeded = "entitlement.quota_exceeded"

	// Favorites
	KeyFavoriteNotFound = "favorite.not_found"
	KeyFavoriteExists   = "favorite.exists"
)
