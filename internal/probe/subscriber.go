package probe

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"GraphTrace/internal/model"
)

// SampleHandler is a function that processes a received traffic sample.
type SampleHandler func(sample model.TrafficSample)

// Subscriber subscribes to a NATS subject and decodes traffic samples.
type Subscriber struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

// NewSubscriber connects to the NATS server.
func NewSubscriber(natsURL string) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Subscriber{nc: nc}, nil
}

// Start subscribes to the subject and feeds decoded samples to the handler.
// Samples arrive from any number of probes; the handler must be safe for
// concurrent use.
func (s *Subscriber) Start(subject string, handler SampleHandler) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		var ws wireSample
		if err := json.Unmarshal(msg.Data, &ws); err != nil {
			log.Printf("Error unmarshalling sample: %v", err)
			return
		}
		src, err := model.NewAddress(ws.Src)
		if err != nil {
			log.Printf("Dropping sample with bad source address: %v", err)
			return
		}
		dst, err := model.NewAddress(ws.Dst)
		if err != nil {
			log.Printf("Dropping sample with bad destination address: %v", err)
			return
		}
		handler(model.TrafficSample{
			Timestamp: time.Unix(0, ws.TsUnixNano),
			Src:       src,
			Dst:       dst,
			Length:    ws.Length,
		})
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for samples...", subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
