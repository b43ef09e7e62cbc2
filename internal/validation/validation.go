// Package validation checks decoded request bodies and reports failures as
// apperr validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/HammerMeetNail/giftcircle/internal/apperr"
	"github.com/HammerMeetNail/giftcircle/internal/models"
)

const failedMessage = "Validation failed"

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

const (
	usernameMin = 3
	usernameMax = 20
	passwordMin = 8
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameProblem(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordProblem(fl.Field().String()) == ""
	})
	return &Validator{validate: v}
}

// Struct validates s against its validate tags.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating request: %w", err)
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := details[field]; !seen {
			details[field] = message(fe)
		}
	}
	return apperr.Validation(failedMessage, details)
}

// ItemPatch checks only the fields present in the patch. Description is the
// only field that may be null.
func (v *Validator) ItemPatch(p models.ItemPatch) error {
	c := &patchChecker{v: v, details: map[string]string{}}
	c.text("title", p.Title, "min=1,max=100", false)
	c.text("description", p.Description, "max=500", true)
	c.text("category", p.Category, "min=1,max=50", false)
	c.enum("condition", p.Condition.Set, p.Condition.Null, string(p.Condition.Value), "NEW LIKE_NEW GOOD FAIR POOR")
	c.notNull("isGifted", p.IsGifted.Set, p.IsGifted.Null)
	return c.err()
}

func (v *Validator) WishPatch(p models.WishPatch) error {
	c := &patchChecker{v: v, details: map[string]string{}}
	c.text("title", p.Title, "min=1,max=100", false)
	c.text("description", p.Description, "max=500", true)
	c.text("category", p.Category, "min=1,max=50", false)
	c.enum("priority", p.Priority.Set, p.Priority.Null, string(p.Priority.Value), "LOW MEDIUM HIGH")
	c.notNull("isFulfilled", p.IsFulfilled.Set, p.IsFulfilled.Null)
	return c.err()
}

type patchChecker struct {
	v       *Validator
	details map[string]string
}

func (c *patchChecker) text(field string, o models.Optional[string], tag string, nullable bool) {
	if !o.Set {
		return
	}
	if o.Null {
		if !nullable {
			c.details[field] = label(field) + " cannot be null"
		}
		return
	}
	c.check(field, o.Value, tag)
}

func (c *patchChecker) enum(field string, set, null bool, value, options string) {
	if !set {
		return
	}
	if null {
		c.details[field] = label(field) + " cannot be null"
		return
	}
	c.check(field, value, "oneof="+options)
}

func (c *patchChecker) notNull(field string, set, null bool) {
	if set && null {
		c.details[field] = label(field) + " cannot be null"
	}
}

func (c *patchChecker) check(field string, value any, tag string) {
	err := c.v.validate.Var(value, tag)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		c.details[field] = messageFor(field, fieldErrs[0])
	}
}

func (c *patchChecker) err() error {
	if len(c.details) == 0 {
		return nil
	}
	return apperr.Validation(failedMessage, c.details)
}

func message(fe validator.FieldError) string {
	return messageFor(fe.Field(), fe)
}

func messageFor(field string, fe validator.FieldError) string {
	name := label(field)
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "Invalid email address"
	case "uuid", "uuid4":
		return name + " must be a valid UUID"
	case "username":
		return usernameProblem(fmt.Sprint(fe.Value()))
	case "password":
		return passwordProblem(fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return name + " is invalid"
	}
}

func usernameProblem(s string) string {
	switch {
	case len(s) < usernameMin:
		return fmt.Sprintf("Username must be at least %d characters", usernameMin)
	case len(s) > usernameMax:
		return fmt.Sprintf("Username must be at most %d characters", usernameMax)
	case !usernamePattern.MatchString(s):
		return "Username must contain only lowercase letters, numbers, and underscores"
	}
	return ""
}

func passwordProblem(s string) string {
	if len(s) < passwordMin {
		return fmt.Sprintf("Password must be at least %d characters", passwordMin)
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	switch {
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}

// label turns a JSON field name into the subject of a message.
func label(field string) string {
	if field == "" {
		return field
	}
	r := []rune(field)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
