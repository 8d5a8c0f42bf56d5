// Package probe moves traffic samples from capture points to the engine
// over NATS. Samples travel as JSON; the wire shape is private to this
// package.
package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"GraphTrace/internal/model"
)

// wireSample is the on-the-wire form of a traffic sample. Addresses travel
// as wide integers and are validated against the 32-bit range on receive.
type wireSample struct {
	TsUnixNano int64 `json:"ts"`
	Src        int64 `json:"src"`
	Dst        int64 `json:"dst"`
	Length     int   `json:"len"`
}

// Publisher publishes traffic samples to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to NATS and returns a publisher for the subject.
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Publish serializes a sample and publishes it to the configured subject.
func (p *Publisher) Publish(sample *model.TrafficSample) error {
	data, err := json.Marshal(wireSample{
		TsUnixNano: sample.Timestamp.UnixNano(),
		Src:        int64(sample.Src),
		Dst:        int64(sample.Dst),
		Length:     sample.Length,
	})
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
