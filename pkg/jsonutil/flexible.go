package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleInt64Value converts a json.RawMessage to an int64, handling
// metadata written by heterogeneous connectors where counts arrive as
// numbers, floats, or quoted strings. Returns (0, false) for null,
// empty, or non-numeric input.
func FlexibleInt64Value(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return int64(numVal), true
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		strVal = strings.TrimSpace(strVal)
		if strVal == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(strVal, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(strVal, 64); err == nil {
			return int64(f), true
		}
	}

	return 0, false
}
