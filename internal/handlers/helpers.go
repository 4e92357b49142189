package handlers

import "strconv"

// parseIntWithDefault parses a query parameter, falling back on bad input
func parseIntWithDefault(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 {
		return defaultValue
	}
	return i
}
