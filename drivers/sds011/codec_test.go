package sds011

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/dustwatch/dustwatch/protocol"
)

func TestDecodeKnownFrame(t *testing.T) {
	checksum := byte((0x0A + 0x00 + 0x14 + 0x00 + 0x00 + 0x00) & 0xFF)
	frame := []byte{0xAA, 0xC0, 0x0A, 0x00, 0x14, 0x00, 0x00, 0x00, checksum, 0xAB}

	m, err := Decode(frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.PM25, test.ShouldEqual, 1.0)
	test.That(t, m.PM10, test.ShouldEqual, 2.0)

	test.That(t, Encode(1.0, 2.0), test.ShouldResemble, frame)
}

func TestDecodeLittleEndian(t *testing.T) {
	// 0x01F4 = 500, 0x0BB8 = 3000
	m, err := Decode(Spec.Seal([]byte{0, 0, 0xF4, 0x01, 0xB8, 0x0B, 0x12, 0x34, 0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.PM25, test.ShouldEqual, 50.0)
	test.That(t, m.PM10, test.ShouldEqual, 300.0)
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct{ pm25, pm10 float64 }{
		{0, 0},
		{0.1, 0.2},
		{12.34, 56.78},
		{999.9, 999.9},
		{6553.5, 0.05},
	} {
		m, err := Decode(Encode(tc.pm25, tc.pm10))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.PM25, test.ShouldAlmostEqual, tc.pm25, 0.05+1e-9)
		test.That(t, m.PM10, test.ShouldAlmostEqual, tc.pm10, 0.05+1e-9)
	}
}

func TestEncodeClamps(t *testing.T) {
	m, err := Decode(Encode(-3, 1e9))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.PM25, test.ShouldEqual, 0.0)
	test.That(t, m.PM10, test.ShouldEqual, 6553.5)

	m, err = Decode(Encode(math.NaN(), 1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.PM25, test.ShouldEqual, 0.0)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	frame := Encode(12.3, 45.6)
	for i := 2; i <= 8; i++ {
		mutated := append([]byte(nil), frame...)
		mutated[i] ^= 0x01
		_, err := Decode(mutated)
		test.That(t, errors.Is(err, protocol.ErrChecksumMismatch), test.ShouldBeTrue)
	}

	_, err := Decode(frame[:9])
	test.That(t, errors.Is(err, protocol.ErrShortRead), test.ShouldBeTrue)

	mutated := append([]byte(nil), frame...)
	mutated[1] = 0xC5
	_, err = Decode(mutated)
	test.That(t, errors.Is(err, protocol.ErrFrameInvalid), test.ShouldBeTrue)
}
