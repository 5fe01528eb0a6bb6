package wx

import (
	"fmt"
	"strconv"
	"strings"
)

// placeholders are display values that must never be reformatted.
var placeholders = map[string]struct{}{
	"NA":  {},
	"N/A": {},
	"--":  {},
	"":    {},
}

// IsPlaceholder reports whether a display value is one of the provider's
// non-numeric markers.
func IsPlaceholder(val string) bool {
	_, ok := placeholders[strings.TrimSpace(val)]
	return ok
}

// Fixed renders a numeric value with the given decimal precision followed
// by suffix. Non-numeric input (a placeholder such as the sentinel display
// string) passes through unchanged.
func Fixed(val any, precision int, suffix string) string {
	value, err := toFloat(val)
	if err != nil {
		return fmt.Sprintf("%v", val)
	}
	return strconv.FormatFloat(value, 'f', precision, 64) + suffix
}

// Amount appends a unit suffix without touching precision; the provider's
// own decimal formatting is preserved for rain and snow totals.
// Placeholders pass through unchanged.
func Amount(val any, suffix string) string {
	s := fmt.Sprintf("%v", val)
	if IsPlaceholder(s) {
		return s
	}
	return s + suffix
}

// DisplayConfig carries the per-device precision and unit-suffix settings
// used when assembling display strings.
type DisplayConfig struct {
	TempDecimals     int
	TempSuffix       string
	HumidityDecimals int
	HumiditySuffix   string
	WindDecimals     int
	WindSuffix       string
	PressureSuffix   string
	RainSuffix       string
	SnowSuffix       string
}

// DefaultDisplayConfig returns the display settings for a unit system with
// one decimal digit everywhere a decimal count applies.
func DefaultDisplayConfig(units UnitSystem) DisplayConfig {
	cfg := DisplayConfig{
		TempDecimals:     1,
		HumidityDecimals: 1,
		WindDecimals:     1,
		HumiditySuffix:   "%",
	}
	if units == UnitStandard {
		cfg.TempSuffix = "°F"
		cfg.WindSuffix = " MPH"
		cfg.PressureSuffix = " in"
		cfg.RainSuffix = " in"
		cfg.SnowSuffix = " in"
	} else {
		cfg.TempSuffix = "°C"
		cfg.WindSuffix = " KPH"
		cfg.PressureSuffix = " mb"
		cfg.RainSuffix = " mm"
		cfg.SnowSuffix = " mm"
	}
	return cfg
}

// Temperature formats a sanitized temperature display value.
func (c DisplayConfig) Temperature(val any) string {
	return Fixed(val, c.TempDecimals, c.TempSuffix)
}

// Percentage formats a sanitized humidity or other percentage value.
func (c DisplayConfig) Percentage(val any) string {
	return Fixed(val, c.HumidityDecimals, c.HumiditySuffix)
}

// Wind formats a sanitized wind speed or gust value.
func (c DisplayConfig) Wind(val any) string {
	return Fixed(val, c.WindDecimals, c.WindSuffix)
}

// Rain appends the rain unit suffix, preserving provider precision.
func (c DisplayConfig) Rain(val any) string {
	return Amount(val, c.RainSuffix)
}

// Snow appends the snow unit suffix, preserving provider precision.
func (c DisplayConfig) Snow(val any) string {
	return Amount(val, c.SnowSuffix)
}

// Pressure appends the pressure unit suffix, preserving provider precision.
func (c DisplayConfig) Pressure(val any) string {
	return Amount(val, c.PressureSuffix)
}
