package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToFloat converts numbers and numeric text to float64.
// Text may carry a thousands separator or a currency sign ("$1,250.50").
// Unreadable values yield 0.
func ToFloat(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case uint32:
		return float64(v)
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	case nil:
		return 0
	default:
		return parseFloat(fmt.Sprintf("%v", v))
	}
}

// ToInt converts numbers and numeric text to int. Fractions are truncated,
// so a spreadsheet cell "3.0" reads as 3.
func ToInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint:
		return int(v)
	case uint64:
		return int(v)
	case uint32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		return int(math.Trunc(parseFloat(s)))
	default:
		return int(math.Trunc(ToFloat(v)))
	}
}

// ToBool converts flags to bool: true, 1, yes and si are true.
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int, int64, int32, uint, uint64, uint32:
		return ToInt(v) == 1
	case string:
		return isTrue(v)
	case []byte:
		return isTrue(string(v))
	default:
		return false
	}
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "si", "sí":
		return true
	}
	return false
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€ ")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
