package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseID parses a positive numeric path parameter such as ":id"
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

// ParseBool reads a query flag; "1", "true" and "yes" are true
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
