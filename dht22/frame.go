// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"fmt"

	"github.com/GermanBionicSystems/dht22/common"
	"periph.io/x/conn/v3/physic"
)

// FrameBits is the number of bits the sensor sends per reading.
const FrameBits = 40

const signBit byte = 0x80

// Frame is the 5 byte payload sent by the sensor:
//
//	[0:2] humidity, big endian, 0.1 %RH
//	[2:4] temperature, big endian, 0.1 °C, bit 7 of [2] is the sign
//	[4]   checksum, low 8 bits of the sum of [0:4]
type Frame [5]byte

// Sum returns the checksum computed over the payload bytes.
func (f *Frame) Sum() byte {
	return common.Sum8(f[:4])
}

// Valid reports whether the checksum byte matches the payload.
func (f *Frame) Valid() bool {
	return f.Sum() == f[4]
}

// Reading decodes the payload. It does not check the checksum.
func (f *Frame) Reading() Reading {
	h := uint16(f[0])<<8 | uint16(f[1])
	t := uint16(f[2]&^signBit)<<8 | uint16(f[3])
	temp := physic.Temperature(t) * (physic.Celsius / 10)
	if f[2]&signBit != 0 {
		temp = -temp
	}
	return Reading{
		Temperature: physic.ZeroCelsius + temp,
		Humidity:    physic.RelativeHumidity(h) * physic.MilliRH,
	}
}

func (f *Frame) String() string {
	return fmt.Sprintf("dht22.Frame{% x}", f[:])
}

// Reading is a decoded, checksum-verified measurement.
//
// The sensor is trusted: values outside its specified range (-40..80 °C,
// 0..100 %RH) are passed through unchanged.
type Reading struct {
	Temperature physic.Temperature
	Humidity    physic.RelativeHumidity
}

// Celsius returns the temperature in degrees Celsius.
func (r Reading) Celsius() float64 {
	return float64(r.Temperature-physic.ZeroCelsius) / float64(physic.Celsius)
}

// Fahrenheit returns the temperature in degrees Fahrenheit.
func (r Reading) Fahrenheit() float64 {
	return r.Celsius()*9/5 + 32
}

// Percent returns the relative humidity in percent, 0 to 100.
func (r Reading) Percent() float64 {
	return float64(r.Humidity) / float64(physic.PercentRH)
}

func (r Reading) String() string {
	return fmt.Sprintf("%s %s", r.Temperature, r.Humidity)
}
