package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
	"GraphTrace/internal/replay"
)

func main() {
	root := flag.String("root", "data/replay", "Replay log root folder.")
	session := flag.String("session", "", "Session folder name (epoch seconds) to inspect.")
	list := flag.Bool("list", false, "List sessions, or the artifacts of -session.")
	at := flag.Duration("at", -1, "Load the artifact covering this offset from the session start (e.g. 25s).")
	index := flag.Int("index", -1, "Load the artifact at this position in the session.")
	top := flag.Int("top", 10, "Number of top talkers to print.")
	flag.Parse()

	if *list && *session == "" {
		listSessions(*root)
		return
	}
	if *session == "" {
		log.Fatal("A -session is required (use -list to see them).")
	}

	folder := filepath.Join(*root, *session)
	if *list {
		listArtifacts(folder)
		return
	}

	rl, err := loadArtifact(folder, *at, *index)
	if err != nil {
		log.Fatalf("Failed to load replay log: %v", err)
	}

	g, err := replay.Replay(rl, 0)
	if err != nil {
		log.Fatalf("Failed to replay: %v", err)
	}

	printSummary(rl, g, *top)
}

func listSessions(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		log.Fatalf("Failed to read replay root %s: %v", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		fmt.Println(e.Name())
	}
}

func listArtifacts(folder string) {
	paths, err := replay.ListArtifacts(folder)
	if err != nil {
		log.Fatalf("Failed to list artifacts: %v", err)
	}
	for i, p := range paths {
		fmt.Printf("%3d  %s\n", i, filepath.Base(p))
	}
}

func loadArtifact(folder string, at time.Duration, index int) (*replay.ReplayLog, error) {
	if at >= 0 {
		return replay.LoadAt(folder, at)
	}

	paths, err := replay.ListArtifacts(folder)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("session folder %s holds no artifacts: %w", folder, replay.ErrNoReplayData)
	}
	if index < 0 {
		index = len(paths) - 1 // default to the latest interval
	}
	if index >= len(paths) {
		return nil, fmt.Errorf("artifact index %d out of range (%d artifacts)", index, len(paths))
	}
	return replay.LoadReplayLog(paths[index])
}

type talker struct {
	addr    model.Address
	packets uint64
	bytes   uint64
}

func printSummary(rl *replay.ReplayLog, g *graph.Graph, top int) {
	fmt.Printf("Interval %s - %s, %d commands replayed\n", rl.From, rl.To, len(rl.Commands))
	fmt.Printf("Graph: %d nodes, %d connections\n", g.NodeCount(), g.ConnectionCount())

	var talkers []talker
	for _, n := range g.Nodes() {
		c, ok := n.Component(model.KindTrafficStats)
		if !ok {
			continue
		}
		stats := c.(model.TrafficStats)
		talkers = append(talkers, talker{addr: n.Address(), packets: stats.Packets, bytes: stats.Bytes})
	}
	sort.Slice(talkers, func(i, j int) bool { return talkers[i].bytes > talkers[j].bytes })

	if top > len(talkers) {
		top = len(talkers)
	}
	if top > 0 {
		fmt.Println("Top talkers:")
		for _, t := range talkers[:top] {
			fmt.Printf("  %-15s  %10d packets  %12d bytes\n", t.addr, t.packets, t.bytes)
		}
	}
}
