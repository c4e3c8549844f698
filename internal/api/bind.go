package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// maxBodyBytes caps request bodies. Targets are whole genes so this is
// larger than a typical API's limit
const maxBodyBytes = 8 << 20

// errBadRequest marks errors caused by the request body
var errBadRequest = errors.New("bad request")

var (
	vOnce      sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

// initValidator builds the validator with english messages that use json field names
func initValidator() {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	})
}

// parseJSON decodes a request body into T and validates it. Unknown fields,
// trailing data and empty bodies are rejected
func parseJSON[T any](r *http.Request) (T, error) {
	initValidator()

	var zero T
	defer r.Body.Close()

	buf := make([]byte, 1)
	n, _ := r.Body.Read(buf)
	if n == 0 {
		return zero, fmt.Errorf("%w: empty body", errBadRequest)
	}

	dec := json.NewDecoder(io.LimitReader(io.MultiReader(bytes.NewReader(buf[:n]), r.Body), maxBodyBytes))
	dec.DisallowUnknownFields()

	var dst T
	if err := dec.Decode(&dst); err != nil {
		return zero, fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return zero, fmt.Errorf("%w: unexpected trailing data", errBadRequest)
	}

	if err := validate.Struct(dst); err != nil {
		return zero, fmt.Errorf("%w: %s", errBadRequest, validationMessage(err))
	}
	return dst, nil
}

// validationMessage is the translated message of the first failing field
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Translate(translator)
	}
	return err.Error()
}
