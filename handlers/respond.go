package handlers

import (
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/taskhub/taskhub-api/internal/apperr"
)

func init() {
	// report validation failures by their JSON field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindJSON decodes the request body into v and enforces its binding tags. An
// empty body decodes as the zero value and is still validated. On failure it
// records a 400 and returns false.
func bindJSON(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(v)
	}
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		_ = c.Error(apperr.Validation(fieldMessage(verrs[0]), err))
		return false
	}
	_ = c.Error(apperr.Validation("Invalid request body", err))
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Tag() == "email":
		return "A valid email is required"
	case fe.Kind() == reflect.Slice && (fe.Tag() == "required" || fe.Tag() == "min"):
		return fe.Field() + " must be a non-empty array"
	case fe.Tag() == "required":
		return fe.Field() + " is required"
	default:
		return "Invalid " + fe.Field()
	}
}

// abort records err for the centralized error handler.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
}
