package sds011

import (
	"fmt"

	"github.com/dustwatch/dustwatch/module"
)

type ui struct{}

func (ui) Headers() []string {
	return []string{"Time", "PM2.5 (µg/m³)", "PM10 (µg/m³)", "Quality"}
}

func (ui) Title(devicePath, status string) string {
	return fmt.Sprintf("SDS011 PM2.5/PM10 Sensor - %s | Port: %s", status, devicePath)
}

func (ui) Row(r module.Reading) []string {
	m := r.Measurements()
	return []string{
		r.Time().Format("15:04:05"),
		fmt.Sprintf("%.1f", m[MeasurementPM25]),
		fmt.Sprintf("%.1f", m[MeasurementPM10]),
		r.Quality(),
	}
}
