package wx

// UnitSystem selects which branch of the provider's per-observation field
// set a device reads.
type UnitSystem string

const (
	UnitStandard UnitSystem = "standard"
	UnitMetric   UnitSystem = "metric"
)

// Branch returns the provider field name carrying this unit system's
// values, and QueryCode the matching request parameter.
func (u UnitSystem) Branch() string {
	if u == UnitStandard {
		return "imperial"
	}
	return "metric"
}

// QueryCode is the provider's units request parameter for this system.
func (u UnitSystem) QueryCode() string {
	if u == UnitStandard {
		return "e"
	}
	return "m"
}

// Measurement pairs a sanitized numeric value with its display string.
// Value is the sentinel -99.0 when the reading was corrupt or missing, in
// which case Display is "--".
type Measurement struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Sentinel reports whether the measurement holds the corrupt-data sentinel.
func (m Measurement) Sentinel() bool {
	return m.Value <= -55.0
}

// Observation is the normalized, display-ready view of one provider
// response for one device.
type Observation struct {
	StationID string `json:"stationId"`

	// Epoch orders observations; zero means the provider did not report
	// a usable timestamp.
	Epoch           int64  `json:"epoch"`
	ObservationTime string `json:"obsTimeLocal"`
	LocalTime24     string `json:"obsTime24"`

	Units UnitSystem `json:"units"`

	Temperature Measurement `json:"temperature"`
	DewPoint    Measurement `json:"dewPoint"`
	HeatIndex   Measurement `json:"heatIndex"`
	WindChill   Measurement `json:"windChill"`

	Pressure      Measurement `json:"pressure"`
	PressureTrend string      `json:"pressureTrend"`

	PrecipRate  Measurement `json:"precipRate"`
	PrecipTotal Measurement `json:"precipTotal"`

	WindSpeed   Measurement `json:"windSpeed"`
	WindGust    Measurement `json:"windGust"`
	WindDegrees Measurement `json:"windDegrees"`

	Humidity Measurement `json:"humidity"`
	UVIndex  Measurement `json:"uvIndex"`

	WindString      string `json:"windString"`
	WindShortString string `json:"windShortString"`
}
