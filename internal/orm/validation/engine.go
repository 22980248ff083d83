package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Engine executes validator tags against single values
type Engine struct {
	validate *validator.Validate
	mu       sync.RWMutex
	messages map[string]string // custom tag -> message
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// NewEngine creates a new validation engine
func NewEngine() *Engine {
	return &Engine{
		validate: validator.New(),
		messages: make(map[string]string),
	}
}

// Default returns the process-wide engine
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine()
	})
	return defaultEngine
}

// RegisterRule adds a custom tag. message is reported when the rule fails.
func (e *Engine) RegisterRule(tag, message string, fn func(value interface{}) bool) error {
	if err := e.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().Interface())
	}); err != nil {
		return fmt.Errorf("register rule %s: %w", tag, err)
	}

	e.mu.Lock()
	e.messages[tag] = message
	e.mu.Unlock()
	return nil
}

// Check validates value against tag and records failures under field
func (e *Engine) Check(field string, value interface{}, tag string, errs *ValidationErrors) {
	if tag == "" {
		return
	}

	err := e.validate.Var(value, tag)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add(field, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		errs.Add(field, e.message(fe))
	}
}

// Var validates a single value and returns *ValidationErrors on failure
func (e *Engine) Var(field string, value interface{}, tag string) error {
	errs := NewValidationErrors()
	e.Check(field, value, tag, errs)
	return errs.Err()
}

func (e *Engine) message(fe validator.FieldError) string {
	e.mu.RLock()
	custom, ok := e.messages[fe.Tag()]
	e.mu.RUnlock()
	if ok {
		return custom
	}

	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "uri":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(param), ", "))
	case "max":
		if isText(fe) {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "min":
		if isText(fe) {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "len":
		return fmt.Sprintf("must have length %s", param)
	case "gt":
		return fmt.Sprintf("must be greater than %s", param)
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lt":
		return fmt.Sprintf("must be less than %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func isText(fe validator.FieldError) bool {
	_, ok := fe.Value().(string)
	return ok
}
