// Package sds011 implements the module for the Nova Fitness SDS011 particulate matter sensor.
// In its default active mode the sensor streams one 10 byte measurement frame per second over
// a 9600 baud CH340 USB serial bridge.
package sds011

import (
	"encoding/binary"
	"math"

	"github.com/dustwatch/dustwatch/protocol"
)

// Spec is the layout of an SDS011 measurement frame:
//
//	AA C0 p25lo p25hi p10lo p10hi id1 id2 checksum AB
var Spec = protocol.FrameSpec{
	Length:        10,
	Header:        0xAA,
	Command:       0xC0,
	Trailer:       0xAB,
	ChecksumStart: 2,
	ChecksumEnd:   8,
	ChecksumIndex: 8,
}

// scale converts raw frame values to µg/m³.
const scale = 10.0

// Measurement is a decoded frame in µg/m³.
type Measurement struct {
	PM25 float64
	PM10 float64
}

// Decode validates frame and extracts its measurement.
func Decode(frame []byte) (Measurement, error) {
	if err := Spec.Validate(frame); err != nil {
		return Measurement{}, err
	}
	return Measurement{
		PM25: float64(binary.LittleEndian.Uint16(frame[2:4])) / scale,
		PM10: float64(binary.LittleEndian.Uint16(frame[4:6])) / scale,
	}, nil
}

// Encode builds a valid frame carrying the given values, rounded to 0.1 µg/m³. Values outside
// what the frame can carry are clamped.
func Encode(pm25, pm10 float64) []byte {
	frame := make([]byte, Spec.Length)
	binary.LittleEndian.PutUint16(frame[2:4], toRaw(pm25))
	binary.LittleEndian.PutUint16(frame[4:6], toRaw(pm10))
	return Spec.Seal(frame)
}

func toRaw(v float64) uint16 {
	raw := math.Round(v * scale)
	switch {
	case raw <= 0 || math.IsNaN(raw):
		return 0
	case raw >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(raw)
	}
}
