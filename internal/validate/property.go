package validate

import (
	"fmt"
	"regexp"
)

var propertyInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SanitizeTag removes characters not in [a-zA-Z0-9\-_.] from a device
// tag or a hardware-fingerprint component submitted by an agent.
func SanitizeTag(value string) string {
	return propertyInvalidChars.ReplaceAllString(value, "")
}

// Tag sanitizes value and returns an error if the result is empty. The
// fieldName parameter is used in the error message for clarity.
func Tag(fieldName, value string) (string, error) {
	sanitized := SanitizeTag(value)
	if sanitized == "" {
		return "", fmt.Errorf("%s must not be empty after removing invalid characters (allowed: a-z A-Z 0-9 - _ .)", fieldName)
	}
	return sanitized, nil
}
