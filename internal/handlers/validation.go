package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pokerbank/internal/money"
)

const maxBodyBytes = 1 << 20

var errInvalidAmount = errors.New("invalid_amount")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// decodeJSON reads a single JSON object into dest and runs its validate tags.
// The returned error is safe to show to the caller.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		if isAmountError(err) {
			return errInvalidAmount
		}
		return errors.New("invalid payload")
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return errors.New("invalid payload")
	}
	fe := errs[0]
	return fmt.Errorf("%s %s", fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}

func isAmountError(err error) bool {
	return errors.Is(err, money.ErrInvalidAmount) ||
		errors.Is(err, money.ErrNegativeAmount) ||
		errors.Is(err, money.ErrTooManyDecimals)
}
