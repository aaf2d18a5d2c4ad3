package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/apperror"
)

type JSONResponse struct {
	Status   bool              `json:"status"`
	Message  string            `json:"message"`
	Code     string            `json:"code,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Data     interface{}       `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondDomainError picks the HTTP status from the error's domain code.
// Internal errors are logged and reported without their cause or metadata.
func RespondDomainError(c *gin.Context, err error) {
	code := apperror.CodeOf(err)
	status := code.HTTPStatus()
	if code == apperror.CodeInternal {
		ErrorLogger.WithField("path", c.Request.URL.Path).Errorf("request failed: %v", err)
		c.AbortWithStatusJSON(status, JSONResponse{
			Status:  false,
			Message: "internal server error",
			Code:    string(code),
		})
		return
	}
	var de *apperror.Error
	var metadata map[string]string
	if errors.As(err, &de) {
		metadata = de.Metadata
	}
	c.AbortWithStatusJSON(status, JSONResponse{
		Status:   false,
		Message:  err.Error(),
		Code:     string(code),
		Metadata: metadata,
	})
}
