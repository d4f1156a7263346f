package blend

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/npezzotti/blend/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

type playlistInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	CoverImage string `json:"coverImage" validate:"omitempty,max=2048"`
}

type messageInput struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// validateStruct reports the first failed rule as a *types.ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return types.NewValidationError(fe.Field(), describe(fe))
	}

	return types.NewValidationError("input", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func normalizeMovie(m types.Movie, addedBy string) (types.Movie, error) {
	m.Id = ""
	m.Title = strings.TrimSpace(m.Title)
	m.Poster = strings.TrimSpace(m.Poster)
	m.AddedBy = addedBy
	if m.Genres == nil {
		m.Genres = []string{}
	}

	if err := validateStruct(m); err != nil {
		return types.Movie{}, err
	}
	return m, nil
}
