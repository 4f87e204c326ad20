package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pennywise/pennywise/backend/go-services/internal/auth"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
	"github.com/samber/lo"
)

// statusFor maps a domain error kind to its HTTP status.
func statusFor(k auth.Kind) int {
	switch k {
	case auth.KindInvalidCredentials,
		auth.KindMissingToken,
		auth.KindTokenExpired,
		auth.KindTokenMalformed,
		auth.KindTokenInvalidSignature:
		return http.StatusUnauthorized
	case auth.KindIdentityNotFound:
		return http.StatusNotFound
	case auth.KindEmailTaken,
		auth.KindWrongProvider,
		auth.KindUnsupportedOperation,
		auth.KindNoPasswordSet,
		auth.KindIncorrectCurrentPassword,
		auth.KindExternalVerificationFailed,
		auth.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorBody(e *auth.Error) gin.H {
	body := gin.H{"success": false, "message": e.Message, "code": e.Kind}
	if e.Provider != "" {
		body["provider"] = e.Provider
	}
	return body
}

// respondError writes err as the standard error body. Anything that is not a
// domain error is logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var e *auth.Error
	if errors.As(err, &e) {
		c.JSON(statusFor(e.Kind), errorBody(e))
		return
	}
	logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal Server Error"})
}

// respondBindError reports a request body that failed to bind or validate.
func respondBindError(c *gin.Context, err error) {
	body := gin.H{"success": false, "message": "Validation Error", "code": auth.KindInvalidInput}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body["details"] = lo.Map(verrs, func(fe validator.FieldError, _ int) string {
			return jsonName(fe.Field()) + ": failed " + fe.Tag()
		})
	} else {
		body["details"] = []string{"malformed JSON body"}
	}
	c.JSON(http.StatusBadRequest, body)
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
