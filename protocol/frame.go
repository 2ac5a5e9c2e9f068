// Package protocol validates fixed-length, checksummed binary frames read from sensor channels
// and provides the bounded retry policy used to resample unaligned serial streams.
package protocol

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrShortRead is returned when fewer bytes than a full frame arrived before the read timeout.
	ErrShortRead = errors.New("short read")
	// ErrFrameInvalid is returned when the header, trailer or command id of a frame is wrong.
	ErrFrameInvalid = errors.New("invalid frame")
	// ErrChecksumMismatch is returned when the frame checksum does not match its payload.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrReadTimeout is returned once a retry policy has used up all of its attempts.
	ErrReadTimeout = errors.New("read timeout")
)

// IsTransient reports whether err is one of the per-frame failures that a retry may cure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrShortRead) || errors.Is(err, ErrFrameInvalid) || errors.Is(err, ErrChecksumMismatch)
}

// FrameSpec describes the fixed layout of one sensor family's frames. The checksum is the
// 8-bit truncated sum of frame[ChecksumStart:ChecksumEnd], stored at frame[ChecksumIndex].
// Header and command occupy the first two bytes, the trailer the last one.
type FrameSpec struct {
	Length        int
	Header        byte
	Command       byte
	Trailer       byte
	ChecksumStart int
	ChecksumEnd   int
	ChecksumIndex int
}

// Checksum computes the checksum of frame over the FrameSpec range. The frame must be at least
// ChecksumEnd bytes long.
func (spec FrameSpec) Checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[spec.ChecksumStart:spec.ChecksumEnd] {
		sum += b
	}
	return sum
}

// Validate checks a frame in order: length, header, trailer, command id, then checksum. The
// first failure rejects the whole frame.
func (spec FrameSpec) Validate(frame []byte) error {
	if len(frame) != spec.Length {
		return errors.Wrapf(ErrShortRead, "got %d of %d bytes", len(frame), spec.Length)
	}
	if frame[0] != spec.Header {
		return errors.Wrapf(ErrFrameInvalid, "header 0x%02X, expected 0x%02X", frame[0], spec.Header)
	}
	if frame[spec.Length-1] != spec.Trailer {
		return errors.Wrapf(ErrFrameInvalid, "trailer 0x%02X, expected 0x%02X", frame[spec.Length-1], spec.Trailer)
	}
	if frame[1] != spec.Command {
		return errors.Wrapf(ErrFrameInvalid, "command 0x%02X, expected 0x%02X", frame[1], spec.Command)
	}
	if sum := spec.Checksum(frame); sum != frame[spec.ChecksumIndex] {
		return errors.Wrapf(ErrChecksumMismatch, "computed 0x%02X, frame carries 0x%02X", sum, frame[spec.ChecksumIndex])
	}
	return nil
}

// Seal fills in the header, command, trailer and checksum of a frame whose payload has already
// been written. It is the inverse of Validate and is mostly useful to simulators and tests.
func (spec FrameSpec) Seal(frame []byte) []byte {
	frame[0] = spec.Header
	frame[1] = spec.Command
	frame[spec.Length-1] = spec.Trailer
	frame[spec.ChecksumIndex] = spec.Checksum(frame)
	return frame
}

// ReadFrame reads exactly one frame worth of bytes from r. A read that times out or ends
// before spec.Length bytes is reported as ErrShortRead. The bytes are not validated.
func ReadFrame(r io.Reader, spec FrameSpec) ([]byte, error) {
	frame := make([]byte, spec.Length)
	n, err := io.ReadFull(r, frame)
	switch {
	case err == nil:
		return frame, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, os.ErrDeadlineExceeded):
		return nil, errors.Wrapf(ErrShortRead, "got %d of %d bytes", n, spec.Length)
	default:
		return nil, err
	}
}
