// Package debugserver exposes a running layer's geometry, neighbor
// table, and on-demand CSV dump over HTTP for interactive inspection.
package debugserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archsim/meshfield/diagnostics"
	"github.com/archsim/meshfield/dump"
	"github.com/archsim/meshfield/geometry"
)

// Server is a small HTTP introspection endpoint bound to one rank's
// geometry and a Bank it can dump on request.
type Server struct {
	geom   geometry.LayerGeometry
	bank   dump.Bank
	writer dump.CSVWriter
	router *mux.Router
}

// New builds a Server for geom, backed by bank for the /dump route.
func New(geom geometry.LayerGeometry, bank dump.Bank, writer dump.CSVWriter) *Server {
	s := &Server{geom: geom, bank: bank, writer: writer}

	r := mux.NewRouter()
	r.HandleFunc("/geometry", s.handleGeometry).Methods(http.MethodGet)
	r.HandleFunc("/neighbors", s.handleNeighbors).Methods(http.MethodGet)
	r.HandleFunc("/dump", s.handleDump).Methods(http.MethodPost)
	s.router = r

	return s
}

// ServeHTTP lets Server act as its own http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleGeometry(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(diagnostics.ReportAxes(s.geom.Axes)))
}

func (s *Server) handleNeighbors(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(diagnostics.ReportNeighbors(s.geom.Neighbors)))
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	tag := dump.NewRunTag()
	shared := r.URL.Query().Get("shared") == "true"

	if err := s.writer.Write(s.geom, s.bank, tag, shared); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"tag": string(tag)})
}
