package session

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dustwatch/dustwatch/module"
)

// Stats summarizes one measurement over the buffered readings.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// computeStats summarizes every measurement name found in readings.
func computeStats(readings []module.Reading) map[string]Stats {
	series := map[string][]float64{}
	for _, r := range readings {
		for name, v := range r.Measurements() {
			series[name] = append(series[name], v)
		}
	}

	out := make(map[string]Stats, len(series))
	for name, values := range series {
		s := Stats{
			Count: len(values),
			Mean:  stat.Mean(values, nil),
			Min:   floats.Min(values),
			Max:   floats.Max(values),
		}
		if len(values) > 1 {
			s.StdDev = stat.StdDev(values, nil)
		}
		out[name] = s
	}
	return out
}

// MeasurementNames returns the keys of stats, sorted.
func MeasurementNames(stats map[string]Stats) []string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
