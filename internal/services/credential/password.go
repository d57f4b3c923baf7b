// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package credential

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords = loadCommonPasswords()

func loadCommonPasswords() map[string]struct{} {
	set := make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return set
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		password := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if password != "" && !strings.HasPrefix(password, "#") {
			set[password] = struct{}{}
		}
	}
	return set
}

// PasswordValidator checks passwords against the account password policy.
type PasswordValidator struct {
	MinLength            int
	MaxLength            int
	RequireUppercase     bool
	RequireLowercase     bool
	RequireDigit         bool
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultPasswordValidator returns the policy applied to every password
// write: registration, self-service change, reset and admin-forced change.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:            8,
		MaxLength:            128,
		RequireUppercase:     true,
		RequireLowercase:     true,
		RequireDigit:         true,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// ValidationError is a single failed policy rule.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps every failed rule.
type PasswordValidationError struct {
	Errors []ValidationError
}

// Error lists the failed rule codes. The human-readable messages are
// available through Messages.
func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "password policy violated: " + strings.Join(e.Codes(), ", ")
}

// Messages returns all error messages.
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// Codes returns the codes of all failed rules.
func (e *PasswordValidationError) Codes() []string {
	codes := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		codes[i] = err.Code
	}
	return codes
}

// ValidationResult holds all validation errors.
type ValidationResult struct {
	Errors []ValidationError
	Valid  bool
}

// Validate checks a password against all configured rules.
func (v *PasswordValidator) Validate(password string, userAttributes ...string) ValidationResult {
	var errs []ValidationError
	fail := func(code, msg string) {
		errs = append(errs, ValidationError{Code: code, Message: msg})
	}

	length := len([]rune(password))
	if length < v.MinLength {
		fail("min_length", fmt.Sprintf("Password must be at least %d characters long.", v.MinLength))
	}
	if v.MaxLength > 0 && length > v.MaxLength {
		fail("max_length", fmt.Sprintf("Password must be at most %d characters long.", v.MaxLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if v.RequireUppercase && !hasUpper {
		fail("no_uppercase", "Password must contain at least one uppercase letter.")
	}
	if v.RequireLowercase && !hasLower {
		fail("no_lowercase", "Password must contain at least one lowercase letter.")
	}
	if v.RequireDigit && !hasDigit {
		fail("no_digit", "Password must contain at least one digit.")
	}

	if isEntirelyNumeric(password) {
		fail("entirely_numeric", "Password cannot be entirely numeric.")
	}

	if v.CheckCommonPasswords && isCommonPassword(password) {
		fail("common_password", "This password is too common.")
	}

	if v.CheckUserSimilarity && isSimilarToUserAttributes(password, userAttributes) {
		fail("too_similar", "Password is too similar to your account details.")
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return password != ""
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(password)]
	return exists
}

func isSimilarToUserAttributes(password string, attributes []string) bool {
	passwordLower := strings.ToLower(password)

	for _, attr := range attributes {
		attrLower := strings.ToLower(attr)
		// Compare against the local part of email addresses too.
		candidates := []string{attrLower}
		if local, _, ok := strings.Cut(attrLower, "@"); ok {
			candidates = append(candidates, local)
		}

		for _, c := range candidates {
			if len(c) < 3 {
				continue
			}
			if strings.Contains(passwordLower, c) || strings.Contains(c, passwordLower) {
				return true
			}
			if similarity(passwordLower, c) > 0.7 {
				return true
			}
		}
	}

	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return float64(longestCommonSubsequence(a, b)) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
