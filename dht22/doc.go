// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht22 reads the AOSONG DHT22 (AM2302) temperature/humidity sensor
// over its single-wire, self-clocked bus.
//
// The host wakes the sensor by pulling the shared line low, then samples the
// line at microsecond granularity. Every bit is a LOW lead-in followed by a
// HIGH pulse whose width encodes the value. 40 bits form a 5 byte frame:
// humidity, temperature (sign and magnitude) and an additive checksum.
//
// A Dev keeps the last frame that passed its checksum. When a read fails,
// the cached reading is returned as Stale so the caller can label it; when
// nothing was ever read the result is Unavailable.
//
// The bus is timing sensitive and a Dev serializes reads. Reading on a
// loaded Linux host loses edges from time to time; this shows up as Stale
// results, not as errors.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/Digital+humidity+and+temperature+sensor+AM2302.pdf
package dht22
