package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// StringToUint parses a route id, returns 0 when s is not a valid id.
// 0 is never a valid row id, so callers can treat it as "not found".
func StringToUint(s string) uint {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(u)
}
