package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
	gopcap "github.com/google/gopacket/pcap"

	"GraphTrace/internal/config"
	"GraphTrace/internal/model"
	"GraphTrace/internal/probe"
	"GraphTrace/pkg/pcap"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = gopcap.BlockForever
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	mode := flag.String("mode", "pub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and print.")
	iface := flag.String("iface", "", "Interface to capture packets from (pub mode).")
	file := flag.String("file", "", "Pcap file to read packets from instead of a live interface (pub mode).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch *mode {
	case "pub":
		runProbe(cfg, *iface, *file)
	case "sub":
		runSubscriber(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe captures packets and publishes traffic samples to NATS.
func runProbe(cfg *config.Config, interfaceName, filePath string) {
	if interfaceName == "" && filePath == "" {
		log.Println("Error: one of -iface or -file is required for pub mode.")
		flag.Usage()
		os.Exit(1)
	}

	pub, err := probe.NewPublisher(cfg.Probe.NATSURL, cfg.Probe.Subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	if filePath != "" {
		publishFile(pub, filePath)
		return
	}

	handle, err := gopcap.OpenLive(interfaceName, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", interfaceName, err)
	}
	defer handle.Close()

	log.Printf("Capture started on %s. Publishing samples to NATS...", interfaceName)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		published := 0
		for packet := range packetSource.Packets() {
			sample, err := probe.ParsePacket(packet)
			if err != nil {
				continue // Skip non-IP packets
			}
			if err := pub.Publish(sample); err != nil {
				log.Printf("Failed to publish sample: %v", err)
			}
			published++
			if published%1000 == 0 {
				log.Printf("%d samples published...", published)
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}

// publishFile replays a capture file into NATS and exits when done.
func publishFile(pub *probe.Publisher, filePath string) {
	reader, err := pcap.NewReader(filePath)
	if err != nil {
		log.Fatalf("Error opening pcap file %s: %v", filePath, err)
	}
	defer reader.Close()

	samples := make(chan *model.TrafficSample, 1024)
	go reader.ReadSamples(samples)

	published := 0
	for sample := range samples {
		if err := pub.Publish(sample); err != nil {
			log.Printf("Failed to publish sample: %v", err)
			continue
		}
		published++
	}
	log.Printf("Published %d samples from %s", published, filePath)
}

// runSubscriber prints received samples, useful for debugging the transport.
func runSubscriber(cfg *config.Config) {
	log.Println("Starting gt-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg.Probe.NATSURL)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(sample model.TrafficSample) {
		log.Printf("Received sample: %s -> %s (%d bytes)", sample.Src, sample.Dst, sample.Length)
	}

	if err := sub.Start(cfg.Probe.Subject, handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
