package probe

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"GraphTrace/internal/model"
)

// ParsePacket decodes a raw packet and extracts the traffic sample the
// graph is built from. Non-IPv4 packets are rejected with an error; the
// caller is expected to skip them.
func ParsePacket(packet gopacket.Packet) (*model.TrafficSample, error) {
	sample := &model.TrafficSample{
		Timestamp: time.Now(),
		Length:    len(packet.Data()),
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		sample.Timestamp = meta.Timestamp
	}

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return nil, fmt.Errorf("not an IPv4 packet")
	}
	ip := l.(*layers.IPv4)

	src := ip.SrcIP.To4()
	dst := ip.DstIP.To4()
	if src == nil || dst == nil {
		return nil, fmt.Errorf("malformed IPv4 addresses")
	}

	sample.Src = model.Address(binary.BigEndian.Uint32(src))
	sample.Dst = model.Address(binary.BigEndian.Uint32(dst))
	return sample, nil
}
