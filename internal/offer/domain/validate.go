package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/makstark/studio-web/internal/apperr"
)

const missingFieldsPrefix = "Please fill: "

// required mirrors the form's mandatory fields; the validator runs on a
// trimmed copy so blank input counts as missing.
type required struct {
	CandidateName string `json:"candidateName" validate:"required"`
	Position      string `json:"position" validate:"required"`
	CTC           string `json:"ctc" validate:"required"`
	StartDate     string `json:"startDate" validate:"required"`
	Dept          string `json:"dept" validate:"required"`
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// Validate reports the mandatory fields that are empty or blank.
func (f Form) Validate() error {
	err := validate.Struct(required{
		CandidateName: strings.TrimSpace(f.CandidateName),
		Position:      strings.TrimSpace(f.Position),
		CTC:           strings.TrimSpace(f.CTC),
		StartDate:     strings.TrimSpace(f.StartDate),
		Dept:          strings.TrimSpace(f.Dept),
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return apperr.Validation(missingFieldsPrefix, missing)
}
