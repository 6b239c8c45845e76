package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/progress-reconciler/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error  APIError `json:"error"`
	Result any      `json:"result,omitempty"`
}

type ResultEnvelope struct {
	Result any `json:"result"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	RespondErrorWithResult(c, status, code, err, nil)
}

// RespondErrorWithResult attaches a partial result to an error response.
func RespondErrorWithResult(c *gin.Context, status int, code string, err error, result any) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
		Result: result,
	})
}

// RespondAPIError unwraps an *apierr.Error; anything else is a 500.
func RespondAPIError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
