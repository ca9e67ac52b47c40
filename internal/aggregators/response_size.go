package aggregators

import (
	"strconv"
	"strings"
)

// parseResponseSize reads a decimal byte count. Anything else, including negative
// numbers, empty strings and "-", yields (0, false).
func parseResponseSize(raw string) (uint64, bool) {
	size, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}
