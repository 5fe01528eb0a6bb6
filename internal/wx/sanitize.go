package wx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// SentinelValue replaces corrupted or implausible numeric readings.
	SentinelValue = -99.0

	// SentinelDisplay is the display form of SentinelValue.
	SentinelDisplay = "--"

	// implausibleFloor is -99 F expressed in Celsius. No legitimate reading
	// lies below it, so anything lower is treated as a corrupt placeholder
	// (the provider emits "--", "-999.0" and similar for failed sensors).
	implausibleFloor = -55.728
)

var errNotNumeric = errors.New("not a numeric value")

// RepairNumeric collapses the provider's known corrupt-data forms into one
// consistent sentinel pair. A value that parses and lies above the
// implausibility floor comes back unchanged with its string form; anything
// else becomes (-99.0, "--").
func RepairNumeric(raw any) (float64, string) {
	value, err := toFloat(raw)
	if err != nil || value < implausibleFloor {
		return SentinelValue, SentinelDisplay
	}
	return value, strconv.FormatFloat(value, 'f', -1, 64)
}

// CoerceFloat is a best-effort parse for fields that are always expected to
// be numeric but occasionally arrive as empty strings. Failures map to the
// sentinel value with no display counterpart.
func CoerceFloat(raw any) float64 {
	value, err := toFloat(raw)
	if err != nil {
		return SentinelValue
	}
	return value
}

// PressureTrendSymbol converts the provider's barometric trend marker into
// a friendlier glyph.
func PressureTrendSymbol(raw any) string {
	switch fmt.Sprintf("%v", raw) {
	case "+":
		return "^"
	case "-":
		return "v"
	case "0":
		return "-"
	default:
		return "?"
	}
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return parsed, nil
	default:
		return 0, errNotNumeric
	}
}
