// Package engine runs the live ingest pipeline: a worker pool that folds
// traffic samples into the network graph and emits the resulting commands
// to the recording service.
package engine

import (
	"log"
	"sync"

	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
)

// Recorder receives the commands produced by ingestion. It is implemented
// by the replay save service; a no-op implementation works for engines that
// never record.
type Recorder interface {
	Receive(cmd model.Command)
}

// Ingestor fans traffic samples out to a pool of workers that mutate the
// live graph in place and forward the equivalent commands to the recorder.
type Ingestor struct {
	graph    *graph.Graph
	recorder Recorder

	sampleChannel chan *model.TrafficSample
	numWorkers    int
	workerWg      sync.WaitGroup
}

// NewIngestor creates an ingestor feeding the given graph and recorder.
func NewIngestor(g *graph.Graph, recorder Recorder, numWorkers, channelSize int) *Ingestor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Ingestor{
		graph:         g,
		recorder:      recorder,
		sampleChannel: make(chan *model.TrafficSample, channelSize),
		numWorkers:    numWorkers,
	}
}

// Input returns the channel samples are delivered to.
func (in *Ingestor) Input() chan<- *model.TrafficSample {
	return in.sampleChannel
}

// Start launches the worker pool.
func (in *Ingestor) Start() {
	in.workerWg.Add(in.numWorkers)
	for i := 0; i < in.numWorkers; i++ {
		go in.worker()
	}
	log.Printf("Ingestor started with %d workers.", in.numWorkers)
}

// Stop closes the input channel and waits for the workers to drain it.
func (in *Ingestor) Stop() {
	close(in.sampleChannel)
	in.workerWg.Wait()
	log.Println("Ingestor stopped.")
}

func (in *Ingestor) worker() {
	defer in.workerWg.Done()
	for sample := range in.sampleChannel {
		in.process(sample)
	}
}

// process applies one sample to the graph and emits commands carrying the
// resulting absolute statistics, so that replaying the command stream
// reproduces the live mutations exactly.
func (in *Ingestor) process(sample *model.TrafficSample) {
	bytes := uint64(sample.Length)

	conn := in.graph.UpsertConnection(sample.Src, sample.Dst)
	connStats := conn.AddTraffic(1, bytes, sample.Timestamp)
	// The connection command goes out as soon as the live mutation lands,
	// so live and recorded state agree even if an endpoint vanishes below.
	in.recorder.Receive(model.ConnectionUpdate{Src: sample.Src, Dst: sample.Dst, Stats: connStats})

	srcNode, err := in.graph.Node(sample.Src)
	if err != nil {
		// The endpoint was removed between upsert and lookup; rare
		// administrative race, skip the node updates.
		log.Printf("Node updates for vanished node %s dropped: %v", sample.Src, err)
		return
	}
	dstNode, err := in.graph.Node(sample.Dst)
	if err != nil {
		log.Printf("Node updates for vanished node %s dropped: %v", sample.Dst, err)
		return
	}

	srcStats := srcNode.AddTraffic(1, bytes, sample.Timestamp)
	dstStats := dstNode.AddTraffic(1, bytes, sample.Timestamp)

	in.recorder.Receive(model.NodeUpdate{Addr: sample.Src, Stats: srcStats})
	in.recorder.Receive(model.NodeUpdate{Addr: sample.Dst, Stats: dstStats})
}
