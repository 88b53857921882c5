package util

import "strings"

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SanitizePostgresTextPtr is SanitizePostgresText for optional columns. nil stays nil.
func SanitizePostgresTextPtr(value *string) *string {
	if value == nil {
		return nil
	}
	sanitized := SanitizePostgresText(*value)
	return &sanitized
}
