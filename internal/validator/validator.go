package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// itsNumberRe matches the 8-digit institutional ITS number.
var itsNumberRe = regexp.MustCompile(`^[0-9]{8}$`)

// Validator wraps go-playground/validator with the sabaq domain rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerDomainRules()

	return v
}

// Validate validates struct tags and returns a flattened error.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if ok := strings.Contains(err.Error(), "Field validation"); !ok {
		return err
	}
	verrs, _ = err.(validator.ValidationErrors)

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, v.errorMessage(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// ValidateITSNumber checks the institutional ID format used for manual marking.
func (v *Validator) ValidateITSNumber(its string) error {
	if !itsNumberRe.MatchString(its) {
		return fmt.Errorf("invalid ITS number: must be 8 digits")
	}
	return nil
}

func (v *Validator) registerDomainRules() {
	_ = v.validate.RegisterValidation("its_number", func(fl validator.FieldLevel) bool {
		return itsNumberRe.MatchString(fl.Field().String())
	})
}

func (v *Validator) errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "its_number":
		return fmt.Sprintf("%s must be an 8-digit ITS number", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "latitude":
		return fmt.Sprintf("%s must be a valid latitude", fe.Field())
	case "longitude":
		return fmt.Sprintf("%s must be a valid longitude", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
