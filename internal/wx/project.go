package wx

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrNoObservation is returned when a document has no observations section
// to project from.
var ErrNoObservation = errors.New("document carries no observation")

// Projector turns raw provider documents into normalized observations. It
// is unit-system aware: the caller chooses which branch of the response to
// read and which display configuration to apply.
type Projector struct {
	local      *time.Location
	dateLayout string
	timeLayout string
}

// NewProjector creates a projector that renders 24-hour observation times
// in the given location. Empty layouts fall back to ISO-style defaults.
func NewProjector(local *time.Location, dateLayout, timeLayout string) *Projector {
	if local == nil {
		local = time.Local
	}
	if dateLayout == "" {
		dateLayout = "2006-01-02"
	}
	if timeLayout == "" {
		timeLayout = "15:04"
	}
	return &Projector{local: local, dateLayout: dateLayout, timeLayout: timeLayout}
}

// Project builds one normalized observation from a raw document. Unit
// dependent fields are read from the imperial or metric branch; the rest
// are read directly. Every selected field passes through the sanitizer
// before its display string is assembled.
func (p *Projector) Project(doc Document, units UnitSystem, disp DisplayConfig) (*Observation, error) {
	if doc.Resolve(nil, "observations") == nil {
		return nil, ErrNoObservation
	}

	branch := units.Branch()
	obs := &Observation{Units: units}

	// Unit-independent fields.
	obs.StationID = fmt.Sprintf("%v", doc.Resolve("", "observations", "stationID"))
	obs.ObservationTime = fmt.Sprintf("%v", doc.Resolve("", "observations", "obsTimeLocal"))

	if epoch := CoerceFloat(doc.Resolve("", "observations", "epoch")); epoch > 0 {
		obs.Epoch = int64(epoch)
		obs.LocalTime24 = time.Unix(obs.Epoch, 0).In(p.local).
			Format(p.dateLayout + " " + p.timeLayout)
	}

	humidity, humidityUI := RepairNumeric(doc.Resolve("", "observations", "humidity"))
	obs.Humidity = Measurement{Value: humidity, Display: disp.Percentage(humidityUI)}

	uv := CoerceFloat(doc.Resolve("", "observations", "uv"))
	obs.UVIndex = Measurement{Value: uv, Display: strconv.FormatFloat(uv, 'f', -1, 64)}

	windDegrees := CoerceFloat(doc.Resolve("", "observations", "winddir"))
	obs.WindDegrees = Measurement{
		Value:   windDegrees,
		Display: strconv.Itoa(int(windDegrees)),
	}

	// Unit-dependent fields.
	temp, tempUI := RepairNumeric(doc.Resolve("", "observations", branch, "temp"))
	obs.Temperature = Measurement{Value: temp, Display: disp.Temperature(tempUI)}

	// Dew point arrives integer-like but occasionally as an empty string.
	dewRaw := math.Trunc(CoerceFloat(doc.Resolve("", "observations", branch, "dewpt")))
	dew, dewUI := RepairNumeric(dewRaw)
	obs.DewPoint = Measurement{Value: dew, Display: disp.Temperature(dewUI)}

	heatIndex, heatUI := RepairNumeric(doc.Resolve("", "observations", branch, "heatIndex"))
	obs.HeatIndex = Measurement{Value: heatIndex, Display: disp.Temperature(heatUI)}

	windChill, chillUI := RepairNumeric(doc.Resolve("", "observations", branch, "windChill"))
	obs.WindChill = Measurement{Value: windChill, Display: disp.Temperature(chillUI)}

	pressure, pressureUI := RepairNumeric(doc.Resolve("", "observations", branch, "pressure"))
	obs.Pressure = Measurement{Value: pressure, Display: disp.Pressure(pressureUI)}
	obs.PressureTrend = PressureTrendSymbol(doc.Resolve("", "observations", branch, "pressureTrend"))

	precipRate, rateUI := RepairNumeric(doc.Resolve("", "observations", branch, "precipRate"))
	obs.PrecipRate = Measurement{Value: precipRate, Display: disp.Rain(rateUI)}

	precipTotal, totalUI := RepairNumeric(doc.Resolve("", "observations", branch, "precipTotal"))
	obs.PrecipTotal = Measurement{Value: precipTotal, Display: disp.Rain(totalUI)}

	windSpeed, speedUI := RepairNumeric(doc.Resolve("", "observations", branch, "windSpeed"))
	obs.WindSpeed = Measurement{Value: windSpeed, Display: disp.Wind(speedUI)}

	windGust, gustUI := RepairNumeric(doc.Resolve("", "observations", branch, "windGust"))
	obs.WindGust = Measurement{Value: windGust, Display: disp.Wind(gustUI)}

	// Composite wind summaries are assembled after per-field sanitization.
	speedLabel := "KPH"
	if units == UnitStandard {
		speedLabel = "MPH"
	}
	obs.WindString = fmt.Sprintf("From %d degrees at %s %s Gusting to %s %s",
		int(windDegrees), trimFloat(windSpeed), speedLabel, trimFloat(windGust), speedLabel)
	obs.WindShortString = fmt.Sprintf("%d degrees at %s", int(windDegrees), trimFloat(windSpeed))

	return obs, nil
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
