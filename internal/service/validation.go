package service

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rryowa/authsession/internal/models"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 50
	emailMaxLen    = 100
	passwordMinLen = 6
	// bcrypt ignores everything past 72 bytes.
	passwordMaxBytes = 72
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// FieldResult is the outcome of validating one field.
type FieldResult struct {
	Valid   bool
	Message string
}

func valid() FieldResult { return FieldResult{Valid: true} }

func invalid(msg string) FieldResult { return FieldResult{Message: msg} }

func ValidateUsername(v string) FieldResult {
	v = strings.TrimSpace(v)
	n := utf8.RuneCountInString(v)
	switch {
	case v == "":
		return invalid("username is required")
	case n < usernameMinLen:
		return invalid("username must be at least 3 characters")
	case n > usernameMaxLen:
		return invalid("username must be at most 50 characters")
	case !usernamePattern.MatchString(v):
		return invalid("username may contain only letters, digits and underscore")
	}
	return valid()
}

func ValidateEmail(v string) FieldResult {
	v = strings.TrimSpace(v)
	if v == "" {
		return invalid("email is required")
	}
	if len(v) > emailMaxLen {
		return invalid("email must be at most 100 characters")
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
		return invalid("email is invalid")
	}
	return valid()
}

func ValidatePassword(v string) FieldResult {
	switch {
	case v == "":
		return invalid("password is required")
	case utf8.RuneCountInString(v) < passwordMinLen:
		return invalid("password must be at least 6 characters")
	case len(v) > passwordMaxBytes:
		return invalid("password must be at most 72 bytes")
	}
	return valid()
}

func required(msg string) func(string) FieldResult {
	return func(v string) FieldResult {
		if strings.TrimSpace(v) == "" {
			return invalid(msg)
		}
		return valid()
	}
}

type fieldCheck struct {
	field  string
	result FieldResult
}

// collect folds field results into a *ValidationError, or nil when all pass.
// The first failure per field wins.
func collect(checks ...fieldCheck) error {
	var verr *ValidationError
	for _, c := range checks {
		if c.result.Valid {
			continue
		}
		if verr == nil {
			verr = &ValidationError{Fields: make(map[string]string)}
		}
		if _, seen := verr.Fields[c.field]; !seen {
			verr.Fields[c.field] = c.result.Message
		}
	}
	if verr == nil {
		return nil
	}
	return verr
}

func validateRegister(req models.RegisterRequest) error {
	return collect(
		fieldCheck{"username", ValidateUsername(req.Username)},
		fieldCheck{"email", ValidateEmail(req.Email)},
		fieldCheck{"password", ValidatePassword(req.Password)},
	)
}

func validateLogin(req models.LoginRequest) error {
	return collect(
		fieldCheck{"email", ValidateEmail(req.Email)},
		fieldCheck{"password", required("password is required")(req.Password)},
	)
}

func validateRefresh(refreshToken string) error {
	return collect(
		fieldCheck{"refresh_token", required("refresh token is required")(refreshToken)},
	)
}

func validateChangePassword(req models.ChangePasswordRequest) error {
	checks := []fieldCheck{
		{"current_password", required("current password is required")(req.CurrentPassword)},
		{"new_password", ValidatePassword(req.NewPassword)},
	}
	if req.NewPassword != "" && req.NewPassword == req.CurrentPassword {
		checks = append(checks, fieldCheck{"new_password", invalid("new password must differ from the current one")})
	}
	if req.NewPasswordConfirmation != req.NewPassword {
		checks = append(checks, fieldCheck{"new_password_confirmation", invalid("passwords do not match")})
	}
	return collect(checks...)
}
