package model

import "time"

// TrafficSample is the metadata extracted from a single observed packet,
// as delivered by a probe. It is the raw input of the ingest pipeline.
type TrafficSample struct {
	Timestamp time.Time
	Src       Address
	Dst       Address
	Length    int
}
