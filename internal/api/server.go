// Package api exposes the read and control surface of the engine: graph
// queries for renderers, recording control, filter application and session
// listing.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"sort"

	"github.com/gorilla/mux"

	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
	"GraphTrace/internal/replay"
)

// Server wires the HTTP handlers to the live graph and recording service.
type Server struct {
	graph      *graph.Graph
	service    *replay.SaveService
	replayRoot string
}

// NewServer creates an API server for the given live graph and service.
func NewServer(g *graph.Graph, service *replay.SaveService, replayRoot string) *Server {
	return &Server{graph: g, service: service, replayRoot: replayRoot}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/graph/summary", s.graphSummaryHandler).Methods("GET")
	r.HandleFunc("/api/v1/graph/nodes", s.nodesHandler).Methods("GET")
	r.HandleFunc("/api/v1/graph/connections", s.connectionsHandler).Methods("GET")
	r.HandleFunc("/api/v1/record/start", s.startRecordHandler).Methods("POST")
	r.HandleFunc("/api/v1/record/stop", s.stopRecordHandler).Methods("POST")
	r.HandleFunc("/api/v1/record/status", s.recordStatusHandler).Methods("GET")
	r.HandleFunc("/api/v1/filters/apply", s.applyFilterHandler).Methods("POST")
	r.HandleFunc("/api/v1/sessions", s.sessionsHandler).Methods("GET")
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type trafficStatsView struct {
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
	Packets   uint64 `json:"packets"`
	Bytes     uint64 `json:"bytes"`
}

type filterMatchView struct {
	Filter   string `json:"filter"`
	Color    uint32 `json:"color"`
	Safe     bool   `json:"safe"`
	Priority int    `json:"priority"`
}

type nodeView struct {
	Addr      string            `json:"addr"`
	Multicast bool              `json:"multicast"`
	Stats     *trafficStatsView `json:"stats,omitempty"`
	Filter    *filterMatchView  `json:"filter,omitempty"`
}

type connectionView struct {
	Src   string            `json:"src"`
	Dst   string            `json:"dst"`
	Stats *trafficStatsView `json:"stats,omitempty"`
}

func statsView(c model.Component, ok bool) *trafficStatsView {
	if !ok {
		return nil
	}
	stats, ok := c.(model.TrafficStats)
	if !ok {
		return nil
	}
	return &trafficStatsView{
		FirstSeen: stats.FirstSeen.UTC().Format("2006-01-02T15:04:05.000Z"),
		LastSeen:  stats.LastSeen.UTC().Format("2006-01-02T15:04:05.000Z"),
		Packets:   stats.Packets,
		Bytes:     stats.Bytes,
	}
}

func (s *Server) graphSummaryHandler(w http.ResponseWriter, r *http.Request) {
	recording, folder := s.service.Recording()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes":       s.graph.NodeCount(),
		"connections": s.graph.ConnectionCount(),
		"recording":   recording,
		"session":     folder,
	})
}

func (s *Server) nodesHandler(w http.ResponseWriter, r *http.Request) {
	nodes := s.graph.Nodes()
	views := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		view := nodeView{
			Addr:      n.Address().String(),
			Multicast: n.Address().IsMulticast(),
			Stats:     statsView(n.Component(model.KindTrafficStats)),
		}
		if c, ok := n.Component(model.KindFilterMatch); ok {
			if m, ok := c.(model.FilterMatch); ok {
				view.Filter = &filterMatchView{
					Filter:   m.FilterName,
					Color:    m.Color,
					Safe:     m.Safe,
					Priority: m.Priority,
				}
			}
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Addr < views[j].Addr })
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) connectionsHandler(w http.ResponseWriter, r *http.Request) {
	conns := s.graph.Connections()
	views := make([]connectionView, 0, len(conns))
	for _, c := range conns {
		views = append(views, connectionView{
			Src:   c.Source().String(),
			Dst:   c.Destination().String(),
			Stats: statsView(c.Component(model.KindTrafficStats)),
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Src != views[j].Src {
			return views[i].Src < views[j].Src
		}
		return views[i].Dst < views[j].Dst
	})
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) startRecordHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.service.StartRecord(); err != nil {
		if errors.Is(err, replay.ErrAlreadyRecording) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	_, folder := s.service.Recording()
	writeJSON(w, http.StatusOK, map[string]string{"session": folder})
}

func (s *Server) stopRecordHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.service.StopRecord(); err != nil {
		if errors.Is(err, replay.ErrNotRecording) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) recordStatusHandler(w http.ResponseWriter, r *http.Request) {
	recording, folder := s.service.Recording()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recording": recording,
		"session":   folder,
	})
}

type filterRequest struct {
	Name     string `json:"name"`
	Color    uint32 `json:"color"`
	Safe     bool   `json:"safe"`
	Priority int    `json:"priority"`
	Ranges   []struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"ranges"`
}

func (s *Server) applyFilterHandler(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || len(req.Ranges) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("filter name and at least one range are required"))
		return
	}

	cmd := model.FilterApply{
		Name:     req.Name,
		Color:    req.Color,
		Safe:     req.Safe,
		Priority: req.Priority,
	}
	for _, rr := range req.Ranges {
		from, err := model.NewAddress(rr.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		to, err := model.NewAddress(rr.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cmd.Ranges = append(cmd.Ranges, model.AddressRange{From: from, To: to})
	}

	// The live mutation and the recorded command go through the same
	// dispatch, so replaying a session reproduces filter effects exactly.
	if err := replay.Apply(s.graph, cmd); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.service.Receive(cmd)
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.replayRoot)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, []string{})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sessions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			sessions = append(sessions, e.Name())
		}
	}
	sort.Strings(sessions)
	writeJSON(w, http.StatusOK, sessions)
}
