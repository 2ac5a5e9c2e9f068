package sds011

import (
	"fmt"
	"time"

	"github.com/dustwatch/dustwatch/module"
)

// Measurement names reported by Reading.Measurements.
const (
	MeasurementPM25 = "pm2_5"
	MeasurementPM10 = "pm10"
)

// PM2.5 thresholds in µg/m³, inclusive.
const (
	goodLimit     = 15.0
	moderateLimit = 25.0
)

// Reading is one SDS011 measurement.
type Reading struct {
	Measurement
	At time.Time
}

// DisplayString renders the reading as a fixed width console line.
func (r *Reading) DisplayString() string {
	return fmt.Sprintf("%s   PM2.5: %5.1f   PM10: %5.1f", r.At.Format("15:04:05"), r.PM25, r.PM10)
}

// Quality is Good, Moderate or Poor depending on PM2.5.
func (r *Reading) Quality() string {
	switch r.Severity() {
	case module.SeverityNominal:
		return "Good"
	case module.SeverityModerate:
		return "Moderate"
	default:
		return "Poor"
	}
}

// Severity classifies PM2.5.
func (r *Reading) Severity() module.Severity {
	switch {
	case r.PM25 <= goodLimit:
		return module.SeverityNominal
	case r.PM25 <= moderateLimit:
		return module.SeverityModerate
	default:
		return module.SeveritySevere
	}
}

// Time returns when the frame was read.
func (r *Reading) Time() time.Time {
	return r.At
}

// Measurements returns PM2.5 and PM10 in µg/m³.
func (r *Reading) Measurements() map[string]float64 {
	return map[string]float64{
		MeasurementPM25: r.PM25,
		MeasurementPM10: r.PM10,
	}
}
