// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"errors"
	"fmt"
)

// ErrNoReading is returned by Sense when the read failed and no reading was
// ever cached.
var ErrNoReading = errors.New("dht22: no reading available")

// HandshakeError is returned when the line could not be driven or switched
// during the wake-up handshake. It is the only hard failure of a read.
type HandshakeError struct {
	Op  string
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("dht22: handshake %s: %v", e.Op, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// FrameIncompleteError is the cause of a fallback when fewer than FrameBits
// bits were sampled before the line went quiet.
type FrameIncompleteError struct {
	Transitions int
	Bits        int
}

func (e *FrameIncompleteError) Error() string {
	return fmt.Sprintf("dht22: incomplete frame, %d bits after %d transitions", e.Bits, e.Transitions)
}

// ChecksumError is the cause of a fallback when a complete frame failed its
// checksum.
type ChecksumError struct {
	Got  byte
	Want byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("dht22: checksum 0x%02x, computed 0x%02x", e.Got, e.Want)
}
