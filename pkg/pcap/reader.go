// Package pcap reads traffic samples out of capture files.
package pcap

import (
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"GraphTrace/internal/model"
	"GraphTrace/internal/probe"
)

// Reader reads packets from a pcap file.
type Reader struct {
	handle *pcap.Handle
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadSamples reads all packets from the pcap file and sends the parsed
// samples to the provided channel. It closes the channel when done.
func (r *Reader) ReadSamples(out chan<- *model.TrafficSample) {
	defer close(out)

	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range packetSource.Packets() {
		sample, err := probe.ParsePacket(packet)
		if err != nil {
			// Unsupported packet types are expected in real captures.
			log.Printf("Error parsing packet: %v", err)
			continue
		}
		out <- sample
	}
}
