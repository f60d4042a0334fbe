package utils

import (
	"errors"
	"io/fs"
	"strconv"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
