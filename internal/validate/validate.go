// Package validate holds the input predicates shared by handlers and
// services, and registers them as gin binding tags.
package validate

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	PasswordMinLen = 8
	PasswordMaxLen = 15
	UserNameMaxLen = 30
)

var (
	userNameRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	phoneRe    = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

	std = validator.New()
)

// DefaultReserved are names that can never be registered.
var DefaultReserved = []string{
	"admin", "administrator", "root", "system", "support", "help", "linsta",
	"linstagram", "api", "accounts", "explore", "settings", "login", "signup",
	"null", "undefined", "me",
}

var (
	reservedMu sync.RWMutex
	reserved   = toSet(DefaultReserved)
)

// SetReserved replaces the reserved user names. Matching is case-insensitive.
func SetReserved(names []string) {
	if len(names) == 0 {
		names = DefaultReserved
	}
	reservedMu.Lock()
	reserved = toSet(names)
	reservedMu.Unlock()
}

func toSet(names []string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = struct{}{}
	}
	return m
}

// IsReserved reports whether name is on the reserved list.
func IsReserved(name string) bool {
	reservedMu.RLock()
	defer reservedMu.RUnlock()
	_, ok := reserved[strings.ToLower(name)]
	return ok
}

// UserNameFormat checks only the character set and length.
func UserNameFormat(name string) bool {
	return len(name) <= UserNameMaxLen && userNameRe.MatchString(name)
}

// UserName checks format and the reserved list.
func UserName(name string) bool {
	return UserNameFormat(name) && !IsReserved(name)
}

// Password requires 8 to 15 characters with at least one upper-case letter,
// one lower-case letter, one digit and one special character.
func Password(pw string) bool {
	n := len([]rune(pw))
	if n < PasswordMinLen || n > PasswordMaxLen {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSpace(r):
			return false
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// Email checks RFC 5322 address shape.
func Email(s string) bool {
	return s != "" && std.Var(s, "email") == nil
}

// Phone accepts 10 to 15 digits with an optional leading '+'.
func Phone(s string) bool {
	return phoneRe.MatchString(s)
}

// ContactKind classifies a login identifier.
type ContactKind int

const (
	ContactInvalid ContactKind = iota
	ContactEmail
	ContactPhone
)

// Contact classifies s as an email address or a phone number.
func Contact(s string) ContactKind {
	s = strings.TrimSpace(s)
	switch {
	case Email(s):
		return ContactEmail
	case Phone(NormalizePhone(s)):
		return ContactPhone
	default:
		return ContactInvalid
	}
}

// NormalizePhone strips the separators people type into phone numbers.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// RegisterGin adds the username, password, phone and contact tags to gin's
// default validator. Safe to call more than once.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return register(v)
}

func register(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"username": func(fl validator.FieldLevel) bool { return UserName(fl.Field().String()) },
		"password": func(fl validator.FieldLevel) bool { return Password(fl.Field().String()) },
		"phone":    func(fl validator.FieldLevel) bool { return Phone(NormalizePhone(fl.Field().String())) },
		"contact":  func(fl validator.FieldLevel) bool { return Contact(fl.Field().String()) != ContactInvalid },
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
