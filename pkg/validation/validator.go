// Package validation holds the field rules shared by the user and task
// services.
package validation

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// MinPasswordLength is the shortest password accepted at registration and login.
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// newlines mirrors the line ending normalisation of the HTML tokenizer.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// dateLayouts are tried in order when parsing a due date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Validator wraps validator/v10 with the custom tags used by the API.
type Validator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

// New creates a validator with the custom tags registered.
func New() *Validator {
	v := &Validator{
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
	}
	v.registerCustomValidators()
	return v
}

func (v *Validator) registerCustomValidators() {
	v.validate.RegisterValidation("email_address", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})

	v.validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) >= MinPasswordLength
	})

	v.validate.RegisterValidation("plain_text", func(fl validator.FieldLevel) bool {
		s := newlines.Replace(fl.Field().String())
		return html.UnescapeString(v.sanitizer.Sanitize(s)) == html.UnescapeString(s)
	})
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(value any, tag string) error {
	return v.validate.Var(value, tag)
}

// IsEmail reports whether s looks like an email address.
func (v *Validator) IsEmail(s string) bool {
	return v.Var(s, "email_address") == nil
}

// IsPassword reports whether s satisfies the password length rule.
func (v *Validator) IsPassword(s string) bool {
	return v.Var(s, "required,password") == nil
}

// Required reports whether every value is non-empty.
func (v *Validator) Required(values ...string) bool {
	for _, value := range values {
		if v.Var(value, "required") != nil {
			return false
		}
	}
	return true
}

// IsPlainText reports whether s is free of markup. Text that only looks
// like markup to an HTML parser, such as "a<b and c>d", is not plain text.
func (v *Validator) IsPlainText(s string) bool {
	return v.Var(s, "plain_text") == nil
}

// ParseDate parses an ISO 8601 date or date-time. Values without a zone are
// taken as UTC. The result is always in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
