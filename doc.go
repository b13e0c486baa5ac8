// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht22 is a container for the DHT22 humidity/temperature sensor
// driver and the tools around it.
//
// The driver itself lives in the dht22 subpackage. comfort derives heat
// index and dew point, console, panel and mqttpub present results, and
// cmd/dht22 ties them together in a polling loop.
package dht22
