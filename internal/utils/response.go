// internal/utils/response.go
package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
)

// APIResponse is the envelope every endpoint writes.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeData(c *gin.Context, status int, data, meta interface{}) {
	c.JSON(status, APIResponse{Success: true, Data: data, Meta: meta})
}

func SuccessResponse(c *gin.Context, data interface{}) {
	writeData(c, http.StatusOK, data, nil)
}

func CreatedResponse(c *gin.Context, data interface{}) {
	writeData(c, http.StatusCreated, data, nil)
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	writeData(c, http.StatusOK, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
			"has_next":    result.HasNext,
		},
	})
}

func ErrorResponse(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, APIResponse{Error: &APIError{Code: code, Message: message, Details: details}})
}

// orDefault translates key when the caller passed no message.
func orDefault(c *gin.Context, message, key string, args ...interface{}) string {
	if message != "" {
		return message
	}
	return i18n.T(GetLangFromContext(c), key, args...)
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", orDefault(c, message, i18n.KeyValidationInvalid, "request"), details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", orDefault(c, message, i18n.KeyAuthRequired), nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", orDefault(c, message, i18n.KeyAdminAccessDenied), nil)
}

func ValidationErrorResponse(c *gin.Context, errs []ValidationError) {
	message := i18n.T(GetLangFromContext(c), i18n.KeyValidationInvalid, "input")
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", message, errs)
}

// AppErrorResponse maps err onto the status and code of its apperrors kind.
// Anything unclassified is logged and reported as a bare 500.
func AppErrorResponse(c *gin.Context, err error) {
	lang := GetLangFromContext(c)

	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind == apperrors.KindInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", i18n.T(lang, i18n.KeyInternalError), nil)
		return
	}
	if appErr.Kind == apperrors.KindExternalProcessor {
		logrus.WithError(appErr.Err).WithField("path", c.Request.URL.Path).Warn("Payment processor call failed")
	}

	// Errors carrying details keep their own message; the rest use the
	// localized text for their code when one exists.
	message := appErr.Message
	if appErr.Details == nil {
		key := "errors." + strings.ToLower(appErr.Code)
		if translated := i18n.T(lang, key); translated != key {
			message = translated
		}
	}
	ErrorResponse(c, appErr.Status(), appErr.Code, message, appErr.Details)
}

func contextString(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func GetLangFromContext(c *gin.Context) string {
	if lang, ok := contextString(c, "lang"); ok && lang != "" {
		return lang
	}
	return "en"
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	return contextString(c, "user_id")
}

func GetUserRoleFromContext(c *gin.Context) (string, bool) {
	return contextString(c, "user_role")
}

// IsAdmin reports whether the authenticated caller holds the admin role.
func IsAdmin(c *gin.Context) bool {
	role, ok := GetUserRoleFromContext(c)
	return ok && models.UserRole(role).IsAdmin()
}

// GetUserUUIDFromContext parses the id the auth middleware stored.
func GetUserUUIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
