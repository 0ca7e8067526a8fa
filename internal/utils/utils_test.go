// internal/utils/utils_test.go
package utils

import (
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("utils-secret")
	userID := uuid.New()

	token, err := GenerateJWT(userID, "miles", "client", 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "miles", claims.Username)
	assert.Equal(t, "client", claims.Role)

	SetJWTSecret("rotated")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWT_RejectsForeignIssuer(t *testing.T) {
	SetJWTSecret("utils-secret")
	claims := JWTClaims{
		UserID: uuid.NewString(),
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("utils-secret"))
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.EqualError(t, err, "invalid token issuer")
}

func TestValidateJWT_Expired(t *testing.T) {
	SetJWTSecret("utils-secret")
	token, err := GenerateJWT(uuid.New(), "miles", "client", -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestGeneratePaymentCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{12}$`)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := GeneratePaymentCode()
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNormalizePaymentCode(t *testing.T) {
	assert.Equal(t, "AB12CD34EF56", NormalizePaymentCode("  ab12cd34ef56\n"))
	assert.Len(t, HashString("AB12CD34EF56"), 64)
	assert.Equal(t, HashString("x"), HashString("x"))
}

type codeRequest struct {
	Code     string `validate:"required,payment_code"`
	Username string `validate:"omitempty,username"`
	Password string `validate:"omitempty,strong_password"`
}

func TestCustomValidators(t *testing.T) {
	assert.NoError(t, ValidateStruct(codeRequest{Code: "ab12cd34ef56"}))
	assert.NoError(t, ValidateStruct(codeRequest{Code: " AB12 "}))
	assert.Error(t, ValidateStruct(codeRequest{Code: "AB1"}))
	assert.Error(t, ValidateStruct(codeRequest{Code: "AB12-CD34"}))

	assert.NoError(t, ValidateStruct(codeRequest{Code: "ABCD", Username: "miles_davis"}))
	assert.Error(t, ValidateStruct(codeRequest{Code: "ABCD", Username: "mi"}))
	assert.Error(t, ValidateStruct(codeRequest{Code: "ABCD", Username: "miles davis"}))

	assert.NoError(t, ValidateStruct(codeRequest{Code: "ABCD", Password: "Secret123!"}))
	assert.Error(t, ValidateStruct(codeRequest{Code: "ABCD", Password: "secret123"}))

	errs := GetValidationErrors(ValidateStruct(codeRequest{Code: "!"}))
	require.Len(t, errs, 1)
	assert.Equal(t, "code", errs[0].Field)
	assert.Equal(t, "payment_code", errs[0].Tag)
}

func TestPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=0&limit=500&order=sideways", nil)

	params := GetPaginationParams(c)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, "desc", params.Order)

	result := CreatePaginationResult([]int{1, 2}, 41, params)
	assert.Equal(t, 3, result.TotalPages)
}
