package handler

import (
	"errors"
	"net/http"
	"reflect"

	"repricer/internal/apierror"
	"repricer/internal/middleware"
	"repricer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// gt=0 and required work on prices.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// On failure it writes the response and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode("invalid_json", "invalid JSON body"))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.WithCode("validation_failed", err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// pathID parses the :id parameter. Malformed ids are reported as not found so
// the API does not reveal which ids are syntactically valid.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.WithCode("not_found", service.ErrProductNotFound.Error()))
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.WithCode("unauthorized", "authentication required"))
	}
	return id, ok
}

// errorStatus maps the service error taxonomy onto HTTP.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrProductNotFound, http.StatusNotFound, "not_found"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrOptimizationInProgress, http.StatusConflict, "optimization_in_progress"},
	{service.ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{service.ErrExternalIDTaken, http.StatusConflict, "external_id_taken"},
	{service.ErrEmptyCategory, http.StatusUnprocessableEntity, "empty_category"},
	{service.ErrInvalidSettings, http.StatusUnprocessableEntity, "invalid_settings"},
	{service.ErrRecommendationUnavailable, http.StatusServiceUnavailable, "recommendation_unavailable"},
	{service.ErrPersistence, http.StatusInternalServerError, "persistence_failed"},
}

// respondError writes the mapped status for known service errors. Anything
// else is attached to the context and answered by middleware.ErrorHandler.
func respondError(c *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				_ = c.Error(err)
			}
			c.JSON(m.status, apierror.WithCode(m.code, m.err.Error()))
			return
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.WithCode("internal", "internal server error"))
}
