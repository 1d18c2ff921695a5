// internal/interfaces/http/handlers/response.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

// ErrorBody is the error envelope every handler returns
type ErrorBody struct {
	Code    apperror.Code  `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// respondError maps err onto its HTTP status. Internal and integrity
// failures are reported with their public message only.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	appErr := apperror.As(err)
	if appErr == nil {
		meta := apperror.MetadataFor(apperror.CodeInternal)
		c.JSON(meta.HTTPStatus, gin.H{"error": ErrorBody{Code: apperror.CodeInternal, Message: meta.PublicMessage}})
		return
	}

	meta := apperror.MetadataFor(appErr.Code())
	body := ErrorBody{Code: appErr.Code(), Message: appErr.Message(), Details: appErr.Details()}
	switch meta.Kind {
	case apperror.KindInternal, apperror.KindIntegrity:
		body.Message = meta.PublicMessage
		body.Details = nil
	}
	c.JSON(meta.HTTPStatus, gin.H{"error": body})
}

func respondBadRequest(c *gin.Context, message string, err error) {
	body := ErrorBody{Code: apperror.CodeValidation, Message: message}
	if err != nil {
		body.Details = map[string]any{"reason": err.Error()}
	}
	c.JSON(400, gin.H{"error": body})
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		respondBadRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return uint(v), true
}
