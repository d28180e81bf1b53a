package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"meetings-service/internal/schedule"
)

const rootField = "__root__"

var usernameRe = regexp.MustCompile(`^[a-zA-Z_]\w*$`)

var registerOnce sync.Once

// RegisterValidators installs the custom tags on gin's validator and makes
// error fields carry their form names. Safe to call repeatedly.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("usernames", func(fl validator.FieldLevel) bool {
			for _, name := range splitList(fl.Field().String()) {
				if !validUsername(name) {
					return false
				}
			}
			return true
		})
		_ = v.RegisterValidation("repeat_type", func(fl validator.FieldLevel) bool {
			return schedule.RepeatType(fl.Field().String()).Valid()
		})
	})
}

func validUsername(name string) bool {
	n := len([]rune(name))
	return n >= 2 && n <= 30 && usernameRe.MatchString(name)
}

// param accepts any JSON scalar (or an array of them, joined with commas) so
// that JSON and form bodies bind to the same string fields.
type param string

func (p *param) UnmarshalJSON(b []byte) error {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return err
	}
	s, err := scalar(v)
	if err != nil {
		return err
	}
	*p = param(s)
	return nil
}

func scalar(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalar(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}

func (p param) String() string { return string(p) }

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// bind decodes the request by its content type and runs the binding tags.
// Every failure comes back as a *ValidationError.
func bind(c *gin.Context, obj any) error {
	b := binding.Default(c.Request.Method, c.ContentType())
	err := c.ShouldBindWith(obj, b)
	if errors.Is(err, io.EOF) {
		// empty JSON body: report missing fields instead of a decode error
		err = binding.Validator.ValidateStruct(obj)
	}
	if err == nil {
		return nil
	}
	return validationError(err)
}

func validateUsername(field, name string) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.Var(name, "required,min=2,max=30,username"); err != nil {
		verr := &ValidationError{}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.Add(field, fieldMessage(fe))
			}
		}
		return verr.OrNil()
	}
	return nil
}

func validationError(err error) error {
	verr := &ValidationError{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), fieldMessage(fe))
		}
		return verr
	}
	verr.Add(rootField, "invalid request body")
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	case "username":
		return `string does not match regex "^[a-zA-Z_]\w*$"`
	case "usernames":
		return `every name must be 2 to 30 characters matching "^[a-zA-Z_]\w*$"`
	case "repeat_type":
		quoted := make([]string, 0, len(schedule.RepeatTypes))
		for _, r := range schedule.RepeatTypes {
			quoted = append(quoted, "'"+string(r)+"'")
		}
		return "value is not a valid enumeration member; permitted: " + strings.Join(quoted, ", ")
	case "number":
		return "value is not a valid integer"
	case "boolean":
		return "value could not be parsed to a boolean"
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}
