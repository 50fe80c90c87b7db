// Package validate checks every input crossing the command boundary
// before it is trusted. Validation failures are rejected operations,
// not crashes, and never reach the tab coordinator.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length limits for boundary inputs.
const (
	MaxIDLength         = 128
	MaxAddressLength    = 2048
	MaxTitleLength      = 1024
	MaxSettingKeyLength = 128
	MaxFindTextLength   = 512
)

var (
	// safeIDPattern allows alphanumeric, hyphens, underscores.
	safeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// settingKeyPattern allows dotted lowercase keys like "search.engine".
	settingKeyPattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)
)

// String validates a string field with length and content checks.
func String(value, fieldName string, minLen, maxLen int, required bool) error {
	if value == "" {
		if required {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ID validates an opaque identifier (tab, bookmark, folder, download).
func ID(id, fieldName string, required bool) error {
	if err := String(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}
	if id != "" && !safeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}
	return nil
}

// Address validates a navigable location. Scheme-level routing is the
// navigation package's concern; here we only bound and sanitize.
func Address(address string, required bool) error {
	if err := String(address, "address", 1, MaxAddressLength, required); err != nil {
		return err
	}
	if address != "" && strings.ContainsAny(address, " \t\r\n") {
		return fmt.Errorf("address contains whitespace")
	}
	return nil
}

// OmniboxInput validates free-form address bar input. Whitespace is
// legal here since multi-word input becomes a search query downstream,
// so only length and content bounds apply.
func OmniboxInput(input string) error {
	return String(input, "input", 1, MaxAddressLength, true)
}

// SettingKey validates a settings key.
func SettingKey(key string) error {
	if err := String(key, "key", 1, MaxSettingKeyLength, true); err != nil {
		return err
	}
	if !settingKeyPattern.MatchString(key) {
		return fmt.Errorf("key contains invalid characters (only lowercase alphanumeric, dots, hyphens, and underscores allowed)")
	}
	return nil
}

// FindText validates in-page search input.
func FindText(text string) error {
	return String(text, "text", 1, MaxFindTextLength, true)
}

// Title validates a user-supplied title (bookmark, folder name).
func Title(title, fieldName string) error {
	return String(title, fieldName, 1, MaxTitleLength, true)
}
