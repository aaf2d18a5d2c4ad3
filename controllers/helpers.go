package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondDomainError(c, apperror.Validation("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return uint(id), true
}

// queryID parses an optional numeric query parameter.
func queryID(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.RespondDomainError(c, apperror.Validation("invalid %s %q", name, raw))
		return nil, false
	}
	v := uint(id)
	return &v, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondDomainError(c, apperror.Wrap(apperror.CodeValidation, err.Error(), err))
		return false
	}
	return true
}
