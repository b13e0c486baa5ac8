// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the additive checksum of AOSONG single-bus sensors.
package common

// Sum8 returns the low 8 bits of the sum of all bytes. AOSONG single-bus
// sensors (DHT22, AM2302) append it to every frame.
func Sum8(bytes []byte) byte {
	var sum byte
	for _, val := range bytes {
		sum += val
	}
	return sum
}
