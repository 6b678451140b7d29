// Package serdser contains the serialization and deserialization
// helpers which are shared by the resource packages.
package serdser

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/momeni/sqlmig/pkg/core/cerr"
)

func Bind(c *gin.Context, req any, b binding.Binding) bool {
	switch err := c.ShouldBindWith(req, b).(type) {
	case *validator.InvalidValidationError:
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": err.Error(),
		})
	case validator.ValidationErrors:
		var nameToErrs map[string][]string
		for _, ferr := range err {
			AddErr(&nameToErrs, ferr.Field(), ferr.Error())
		}
		c.JSON(http.StatusBadRequest, nameToErrs)
	default:
		if err == nil {
			return true
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": err.Error(),
		})
	}
	return false
}

func AddErr(errs *map[string][]string, name string, msgs ...string) {
	if (*errs) == nil {
		*errs = make(map[string][]string)
	}
	if elist, ok := (*errs)[name]; !ok {
		(*errs)[name] = msgs
	} else {
		(*errs)[name] = append(elist, msgs...)
	}
}

// SerErr writes err as a JSON response. The cerr kinds choose the
// status code: validation failures are reported as conflicts with the
// list of their codes, a busy schema history is reported as an
// unavailable service, and other errors are internal server errors.
func SerErr(c *gin.Context, err error) {
	var ce *cerr.Error
	if errors.As(err, &ce) {
		c.JSON(ce.HTTPStatusCode, gin.H{
			"detail": ce.Err.Error(),
		})
		return
	}
	var ves cerr.ValidationErrors
	if errors.As(err, &ves) {
		c.JSON(http.StatusConflict, gin.H{
			"detail": "validation failed",
			"errors": ves,
		})
		return
	}
	var lte *cerr.LockTimeoutError
	if errors.As(err, &lte) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"detail": lte.Error(),
		})
		return
	}
	var cfe *cerr.ConfigurationError
	if errors.As(err, &cfe) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail":  cfe.Error(),
			"setting": cfe.Setting,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"detail": err.Error(),
	})
}
