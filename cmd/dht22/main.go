// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// dht22 reads a DHT22 sensor on a fixed cadence and prints each reading
// with its heat index and dew point.
//
// A failed read prints the last good reading, labelled as cached. Results
// can also be published to an MQTT broker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/dht22/comfort"
	"github.com/GermanBionicSystems/dht22/console"
	"github.com/GermanBionicSystems/dht22/dht22"
	"github.com/GermanBionicSystems/dht22/mqttpub"
	"github.com/charmbracelet/log"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const thresholdHelp = "HIGH pulse width above which a bit is 1; the default suits a slow polling loop, use ~48µs when the host clock is exact (datasheet pulses are 26-28µs and 70µs)"

type reader interface {
	Read() (dht22.Result, error)
}

type publisher interface {
	Publish(r dht22.Result, m comfort.Metrics, ts time.Time) error
}

// run reads count times, interval apart, until ctx is cancelled.
func run(ctx context.Context, logger *log.Logger, r reader, out *console.Printer, pubs []publisher, count int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < count; i++ {
		if i != 0 {
			select {
			case <-ctx.Done():
				logger.Info("interrupted", "reads", i)
				return nil
			case <-ticker.C:
			}
		}
		res, err := r.Read()
		if err != nil {
			// The next tick is the retry.
			logger.Error("read failed", "err", err)
			continue
		}
		if res.Cause != nil {
			logger.Debug("frame rejected", "status", res.Status, "cause", res.Cause)
		}
		var m comfort.Metrics
		if res.Ok() {
			m = comfort.Compute(res.Reading.Temperature, res.Reading.Humidity)
		}
		if err := out.Print(res, m); err != nil {
			return err
		}
		for _, p := range pubs {
			if err := p.Publish(res, m, time.Now()); err != nil {
				logger.Warn("publish failed", "err", err)
			}
		}
	}
	return nil
}

func mainImpl() error {
	pin := flag.String("pin", "GPIO27", "GPIO pin the sensor data line is connected to")
	count := flag.Int("count", 5000, "number of reads")
	interval := flag.Duration("interval", 10*time.Second, "delay between reads")
	threshold := flag.Duration("threshold", dht22.DefaultOpts.BitThreshold, thresholdHelp)
	level := flag.String("level", "info", "log level")
	broker := flag.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883; empty disables publishing")
	topic := flag.String("topic", mqttpub.DefaultOpts.Topic, "MQTT topic")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "dht22"})
	lvl, err := log.ParseLevel(*level)
	if err != nil {
		return fmt.Errorf("invalid -level %q: %w", *level, err)
	}
	logger.SetLevel(lvl)

	if _, err := host.Init(); err != nil {
		return err
	}
	p := gpioreg.ByName(*pin)
	if p == nil {
		return fmt.Errorf("failed to find pin %q", *pin)
	}
	opts := dht22.DefaultOpts
	opts.BitThreshold = *threshold
	d, err := dht22.New(p, &opts)
	if err != nil {
		return err
	}
	defer d.Halt()
	logger.Info("sensor ready", "dev", d, "count", *count, "interval", *interval)

	out := console.New(nil)
	defer out.Halt()

	var pubs []publisher
	if *broker != "" {
		po := mqttpub.DefaultOpts
		po.Broker = *broker
		po.Topic = *topic
		pub, err := mqttpub.Connect(&po)
		if err != nil {
			return err
		}
		defer pub.Halt()
		logger.Info("publishing", "broker", *broker, "topic", *topic)
		pubs = append(pubs, pub)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, logger, d, out, pubs, *count, *interval)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "dht22: %s.\n", err)
		os.Exit(1)
	}
}
