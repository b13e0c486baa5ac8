// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mqttpub publishes DHT22 results to an MQTT broker as JSON.
//
// Every read is published, including failed ones, so subscribers can tell a
// cached or missing reading from a fresh one. Value fields are omitted when
// there is no reading; they are never sent as zeros.
package mqttpub

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/dht22/comfort"
	"github.com/GermanBionicSystems/dht22/dht22"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Opts holds the configuration options for the publisher.
type Opts struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retained bool
	// Timeout bounds connecting and each publish.
	Timeout time.Duration
}

// DefaultOpts holds the default configuration options for the publisher.
var DefaultOpts = Opts{
	Broker:   "tcp://localhost:1883",
	ClientID: "dht22",
	Topic:    "sensors/dht22",
	Timeout:  5 * time.Second,
}

// Payload is the JSON document published for each result.
type Payload struct {
	Status       string    `json:"status"`
	TemperatureC *float64  `json:"temperature_c,omitempty"`
	HumidityPct  *float64  `json:"humidity_pct,omitempty"`
	HeatIndexF   *float64  `json:"heat_index_f,omitempty"`
	DewPointC    *float64  `json:"dew_point_c,omitempty"`
	Cause        string    `json:"cause,omitempty"`
	Timestamp    time.Time `json:"ts"`
}

// NewPayload builds the document for r.
func NewPayload(r dht22.Result, m comfort.Metrics, ts time.Time) Payload {
	p := Payload{Status: r.Status.String(), Timestamp: ts}
	if r.Cause != nil {
		p.Cause = r.Cause.Error()
	}
	if r.Ok() {
		c := r.Reading.Celsius()
		h := r.Reading.Percent()
		hi := float64(m.HeatIndex)
		dp := float64(m.DewPoint)
		p.TemperatureC, p.HumidityPct, p.HeatIndexF, p.DewPointC = &c, &h, &hi, &dp
	}
	return p
}

// Publisher sends results to one topic.
type Publisher struct {
	client mqtt.Client
	opts   Opts
}

// Connect dials the broker and returns a Publisher using it. The Opts can be
// nil.
func Connect(opts *Opts) (*Publisher, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.Timeout)
	c := mqtt.NewClient(o)
	token := c.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("mqttpub: connecting to %s timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttpub: connecting to %s: %w", opts.Broker, err)
	}
	return New(c, opts)
}

// New returns a Publisher using an already configured client. The Opts can
// be nil.
func New(c mqtt.Client, opts *Opts) (*Publisher, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Topic == "" {
		return nil, errors.New("mqttpub: empty topic")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("mqttpub: invalid QoS %d", opts.QoS)
	}
	return &Publisher{client: c, opts: *opts}, nil
}

// Publish sends r and its derived metrics.
func (p *Publisher) Publish(r dht22.Result, m comfort.Metrics, ts time.Time) error {
	payload, err := json.Marshal(NewPayload(r, m, ts))
	if err != nil {
		return fmt.Errorf("mqttpub: %w", err)
	}
	token := p.client.Publish(p.opts.Topic, p.opts.QoS, p.opts.Retained, payload)
	if p.opts.Timeout > 0 && !token.WaitTimeout(p.opts.Timeout) {
		return fmt.Errorf("mqttpub: publishing to %s timed out", p.opts.Topic)
	} else if p.opts.Timeout <= 0 {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttpub: publishing to %s: %w", p.opts.Topic, err)
	}
	return nil
}

// Halt disconnects from the broker.
func (p *Publisher) Halt() error {
	p.client.Disconnect(250)
	return nil
}

func (p *Publisher) String() string {
	return fmt.Sprintf("mqttpub{%s}", p.opts.Topic)
}
