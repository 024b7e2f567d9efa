package users

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field messages returned to clients
const (
	msgEmailRequired = "E-mail é obrigatório"
	msgNameRequired  = "Nome é obrigatório"
	msgAgeRequired   = "Idade é obrigatória"
	msgAgeInvalid    = "Idade deve ser um número inteiro maior ou igual a 1"
	msgNoFields      = "Informe ao menos um campo: email, name ou age"
	msgInvalidField  = "Valor inválido"
)

// MinAge is the smallest accepted age
const MinAge = 1

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("age", func(fl validator.FieldLevel) bool {
		_, ok := parseAge(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}

	return v
}

// parseAge accepts base-10 integers >= MinAge
func parseAge(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < MinAge {
		return 0, false
	}
	return n, true
}

// canonicalAge returns the stored text for a validated age
func canonicalAge(a Age) string {
	n, ok := parseAge(string(a))
	if !ok {
		return string(a)
	}
	return strconv.Itoa(n)
}

func normalizeCreate(req *CreateUserRequest) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Age = Age(strings.TrimSpace(string(req.Age)))
}

func normalizeUpdate(req *UpdateUserRequest) {
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		req.Email = &email
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Age != nil {
		age := Age(strings.TrimSpace(string(*req.Age)))
		req.Age = &age
	}
}

func normalizeList(req *ListUsersRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Age = strings.TrimSpace(req.Age)
	// ages are stored canonically, so "030" must match "30"
	if n, ok := parseAge(req.Age); ok {
		req.Age = strconv.Itoa(n)
	}
}

// ValidateCreate normalizes and validates a create request
func ValidateCreate(req *CreateUserRequest) error {
	if req == nil {
		return &ValidationError{Fields: map[string]string{
			"email": msgEmailRequired,
			"name":  msgNameRequired,
			"age":   msgAgeRequired,
		}}
	}
	normalizeCreate(req)
	return translate(validate.Struct(req))
}

// ValidateUpdate normalizes and validates a partial update request
func ValidateUpdate(req *UpdateUserRequest) error {
	if req == nil || req.IsEmpty() {
		return NewValidationError("body", msgNoFields)
	}
	normalizeUpdate(req)
	return translate(validate.Struct(req))
}

func translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "email":
		return msgEmailRequired
	case "name":
		return msgNameRequired
	case "age":
		if fe.Tag() == "required" {
			return msgAgeRequired
		}
		return msgAgeInvalid
	}
	return msgInvalidField
}

// BindingError turns a JSON value of the wrong type into a field-level
// ValidationError. Other decoding failures return nil.
func BindingError(err error) *ValidationError {
	if errors.Is(err, errAgeType) {
		return NewValidationError("age", msgAgeInvalid)
	}

	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		return nil
	}
	field := typeErr.Field
	if field == "age" {
		return NewValidationError(field, msgAgeInvalid)
	}
	return NewValidationError(field, msgInvalidField)
}
