// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Wake-up handshake, datasheet section 7.
const (
	wakeHigh    = 10 * time.Millisecond
	startLow    = 18 * time.Millisecond
	releaseHigh = 40 * time.Microsecond
)

// The sensor must not be sampled more often than every 2 seconds.
const minSenseInterval = 2 * time.Second

// sampling serializes timed windows across all devices, since the GC
// percentage is process wide.
var sampling sync.Mutex

// Opts holds the configuration options for the device.
type Opts struct {
	// BitThreshold is the HIGH pulse width above which a bit reads as 1.
	// The default of 16µs was tuned against a polling loop that is slower
	// than its nominal 1µs step. With an exact clock the datasheet widths
	// are 26-28µs for 0 and 70µs for 1; use ~48µs there.
	BitThreshold time.Duration
	// PulseCeiling aborts the read when the line stays at one level this long.
	PulseCeiling time.Duration
	// Transitions is the number of line transitions that make a full frame:
	// 3 for the sensor's response, then 2 per bit, then the final release.
	Transitions int
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	BitThreshold: 16 * time.Microsecond,
	PulseCeiling: 255 * time.Microsecond,
	Transitions:  84,
}

// Dev is a handle to a DHT22 sensor.
type Dev struct {
	line  Line
	clock Clock
	opts  Opts

	mu  sync.Mutex // Serializes handshakes.
	dec *decoder
	v   Validator

	ctl      sync.Mutex
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// New returns a Dev reading the sensor connected to p. The Opts can be nil.
//
// The line is driven high so the sensor is idle before the first read.
func New(p gpio.PinIO, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, errors.New("dht22: nil pin")
	}
	l := PinLine(p)
	if err := l.Write(gpio.High); err != nil {
		return nil, fmt.Errorf("dht22: %w", err)
	}
	return NewLine(l, HostClock(), opts)
}

// NewLine returns a Dev using an arbitrary line and clock. The Opts can be
// nil.
func NewLine(l Line, c Clock, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.BitThreshold <= 0 || opts.PulseCeiling <= opts.BitThreshold {
		return nil, fmt.Errorf("dht22: invalid pulse widths, threshold %s, ceiling %s", opts.BitThreshold, opts.PulseCeiling)
	}
	if need := responseTransitions + 2*FrameBits; opts.Transitions < need {
		return nil, fmt.Errorf("dht22: %d transitions cannot carry a frame, need at least %d", opts.Transitions, need)
	}
	return &Dev{line: l, clock: c, opts: *opts, dec: newDecoder(opts)}, nil
}

// Read performs one handshake with the sensor and returns the result.
//
// The only error is a *HandshakeError, when the line itself failed. A frame
// that was cut short or failed its checksum is not an error: the result is
// then the cached reading marked Stale, or Unavailable with the Cause set.
func (d *Dev) Read() (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Keep the goroutine on its thread and the collector off while the
	// pulses are timed.
	sampling.Lock()
	defer sampling.Unlock()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	gcPercent := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	if err := d.handshake(); err != nil {
		return Result{}, err
	}
	d.listen()
	f, err := d.dec.result()
	if err != nil {
		return d.v.Fallback(err), nil
	}
	return d.v.Accept(f), nil
}

// Last returns the cached reading, if any, without touching the line.
func (d *Dev) Last() (Reading, bool) {
	return d.v.Cache.Load()
}

// Sense implements physic.SenseEnv. A Stale reading is reported without an
// error, use Read to tell fresh and cached readings apart. ErrNoReading is
// returned when nothing was ever read.
func (d *Dev) Sense(e *physic.Env) error {
	e.Temperature = 0
	e.Pressure = 0
	e.Humidity = 0
	r, err := d.Read()
	if err != nil {
		return err
	}
	if !r.Ok() {
		return fmt.Errorf("%w: %v", ErrNoReading, r.Cause)
	}
	e.Temperature = r.Reading.Temperature
	e.Humidity = r.Reading.Humidity
	return nil
}

// SenseContinuous implements physic.SenseEnv. Only fresh readings are sent
// on the channel. The minimum interval is 2 seconds; call Halt() to stop.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minSenseInterval {
		return nil, fmt.Errorf("dht22: invalid interval %s, minimum %s", interval, minSenseInterval)
	}
	d.ctl.Lock()
	defer d.ctl.Unlock()
	if d.shutdown != nil {
		return nil, errors.New("dht22: sense continuous already running")
	}
	stop := make(chan struct{})
	d.shutdown = stop
	ch := make(chan physic.Env, 16)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r, err := d.Read()
				if err != nil || r.Status != Fresh {
					continue
				}
				select {
				case ch <- physic.Env{Temperature: r.Reading.Temperature, Humidity: r.Reading.Humidity}:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Halt implements conn.Resource. It stops a running SenseContinuous().
func (d *Dev) Halt() error {
	d.ctl.Lock()
	defer d.ctl.Unlock()
	if d.shutdown == nil {
		return nil
	}
	close(d.shutdown)
	d.wg.Wait()
	d.shutdown = nil
	return nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Celsius / 10
	e.Pressure = 0
	e.Humidity = physic.MilliRH
}

func (d *Dev) String() string {
	return fmt.Sprintf("dht22{%v}", d.line)
}

// handshake wakes the sensor and releases the line to it.
func (d *Dev) handshake() error {
	if err := d.line.SetDirection(Output); err != nil {
		return &HandshakeError{Op: "set output", Err: err}
	}
	for _, s := range []struct {
		l    gpio.Level
		hold time.Duration
	}{
		{gpio.High, wakeHigh},
		{gpio.Low, startLow},
		{gpio.High, releaseHigh},
	} {
		if err := d.line.Write(s.l); err != nil {
			return &HandshakeError{Op: "write " + s.l.String(), Err: err}
		}
		d.clock.Sleep(s.hold)
	}
	if err := d.line.SetDirection(Input); err != nil {
		return &HandshakeError{Op: "set input", Err: err}
	}
	return nil
}

// listen polls the line every microsecond until the decoder is done or
// failed.
func (d *Dev) listen() {
	d.dec.start(d.clock.Micros())
	for {
		switch d.dec.step(d.clock.Micros(), d.line.Read()) {
		case done, failed:
			return
		}
		d.clock.Sleep(time.Microsecond)
	}
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
