// Package validation checks the shape of registration and login input.
//
// Every check is pure: no I/O, no logging. Each function returns the full set
// of field errors for the input; an empty set means the input passed. For any
// one field the "required" check runs first, so a missing field reports only
// that it is required.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/studenthub/marketplace/internal/core/domain"
	"github.com/studenthub/marketplace/internal/core/ports"
)

// DefaultStudentEmailSuffix is the academic domain suffix student addresses
// must end with.
const DefaultStudentEmailSuffix = "-edu.ma"

// passwordSymbols is the punctuation set a registration password must draw
// at least one character from.
const passwordSymbols = "!@#$%^&*(),.?\":{}|<>_-+=[]\\/;'`~"

const (
	minRegisterPassword = 8
	maxPasswordBytes    = 72 // bcrypt input limit, counted in bytes
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	phonePattern    = regexp.MustCompile(`^(?:212|0)[5-7]\d{8}$`)
	nonDigits       = regexp.MustCompile(`\D`)
)

// Policy holds the configurable parts of the credential rules.
type Policy struct {
	StudentEmailSuffix string
}

// Validator validates credential input against a Policy.
type Validator struct {
	v            *validator.Validate
	studentEmail *regexp.Regexp
	suffix       string
}

type registration struct {
	Name       string `field:"name"       validate:"required"`
	Email      string `field:"email"      validate:"required,role_email"`
	Phone      string `field:"phone"      validate:"required,ma_phone"`
	Password   string `field:"password"   validate:"required,strong_password,bcrypt_len"`
	Role       string `field:"role"       validate:"required,oneof=student owner"`
	University string `field:"university" validate:"required_if=Role student"`
}

type login struct {
	Email    string `field:"email"    validate:"required,email_shape"`
	Password string `field:"password" validate:"required,min=6,bcrypt_len"`
}

type adminLogin struct {
	Username string `field:"username" validate:"required,min=3,username"`
	Password string `field:"password" validate:"required,min=6,bcrypt_len"`
}

// New builds a Validator. An empty suffix falls back to
// DefaultStudentEmailSuffix.
func New(p Policy) *Validator {
	suffix := p.StudentEmailSuffix
	if suffix == "" {
		suffix = DefaultStudentEmailSuffix
	}

	val := &Validator{
		v:            validator.New(),
		studentEmail: regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+` + regexp.QuoteMeta(suffix) + `$`),
		suffix:       suffix,
	}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	mustRegister(val.v, "role_email", val.roleEmail)
	mustRegister(val.v, "email_shape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(val.v, "strong_password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	mustRegister(val.v, "bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	mustRegister(val.v, "ma_phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	mustRegister(val.v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Registration validates the full registration form.
func (val *Validator) Registration(in ports.RegisterInput) domain.ValidationErrors {
	return val.run(registration{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Password:   in.Password,
		Role:       in.Role,
		University: in.University,
	}, domain.Role(in.Role))
}

// Login validates an email/password login. Password rules are relaxed
// compared with registration.
func (val *Validator) Login(in ports.LoginInput) domain.ValidationErrors {
	return val.run(login{Email: in.Email, Password: in.Password}, "")
}

// AdminLogin validates a username/password admin login.
func (val *Validator) AdminLogin(in ports.LoginInput) domain.ValidationErrors {
	return val.run(adminLogin{Username: in.Username, Password: in.Password}, "")
}

// StudentEmail reports whether email belongs to the academic domain.
func (val *Validator) StudentEmail(email string) bool {
	return val.studentEmail.MatchString(email)
}

// Email reports whether email has the standard local@domain.tld shape.
func (val *Validator) Email(email string) bool {
	return emailPattern.MatchString(email)
}

func (val *Validator) run(form any, role domain.Role) domain.ValidationErrors {
	var out domain.ValidationErrors

	err := val.v.Struct(form)
	if err == nil {
		return out
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return out.Add("input", err.Error())
	}
	for _, fe := range ve {
		out = out.Add(fe.Field(), val.message(fe, role))
	}
	return out
}

func (val *Validator) roleEmail(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	role := fl.Parent().FieldByName("Role").String()
	if domain.Role(role) == domain.RoleStudent {
		return val.studentEmail.MatchString(email)
	}
	return emailPattern.MatchString(email)
}

func (val *Validator) message(fe validator.FieldError, role domain.Role) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "role_email":
		if role == domain.RoleStudent {
			return "student email must use an academic address ending in " + val.suffix
		}
		return "email must be a valid email address"
	case "email_shape":
		return "email must be a valid email address"
	case "strong_password":
		return fmt.Sprintf("password must be at least %d characters and contain an uppercase letter, a lowercase letter, a digit and a symbol", minRegisterPassword)
	case "bcrypt_len":
		return fmt.Sprintf("%s must be at most %d bytes", field, maxPasswordBytes)
	case "ma_phone":
		return "phone must be a valid mobile number"
	case "username":
		return "username may only contain letters, digits and underscores"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// StrongPassword applies the registration strength rule.
func StrongPassword(pw string) bool {
	if len(pw) < minRegisterPassword {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// ValidPhone normalizes phone and matches it against the national mobile
// pattern: a 212 country code or a leading zero, then nine digits.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}
