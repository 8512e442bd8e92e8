package validators

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wedanddone/wedanddone-backend/pkg/caldate"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

// maxBodyBytes bounds every JSON request; wizard payloads are small.
const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("iso_date", func(fl validator.FieldLevel) bool {
		_, err := caldate.ParseISO(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("module", func(fl validator.FieldLevel) bool {
		return enums.BoutiqueModule(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("lock_reason", func(fl validator.FieldLevel) bool {
		return enums.LockReason(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := money.ParseAmount(fl.Field().String())
		return err == nil
	})
	return v
}

func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	return ValidateStruct(dest)
}

// ValidateStruct runs the struct tags without decoding, for bodies assembled
// from path parameters.
func ValidateStruct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "iso_date":
		return "must be a date formatted YYYY-MM-DD"
	case "module":
		return "must be a known boutique module"
	case "lock_reason":
		return "must be a known lock reason"
	case "amount":
		return fmt.Sprintf("must be a decimal amount no greater than %s", money.Format(money.MaxAmount))
	}
	return "is invalid"
}
