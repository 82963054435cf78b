package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/i4energy/exi-modem/modem"
)

// Server exposes a debug HTTP surface over a running Device: status
// reporting and a way to trigger a dial without going through the AT
// command layer, useful for poking at a device from outside the guest
// that actually owns the register bus.
type Server struct {
	Logger *slog.Logger
	Device *modem.Device
}

// ServeHTTP implements the http.Handler interface for the Server struct.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /dial", s.handleDial)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}
	type errorResponse struct {
		Message string `json:"message"`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{Message: message})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type statusResponse struct {
		Present           bool `json:"present"`
		InterruptAsserted bool `json:"interrupt_asserted"`
	}
	resp := statusResponse{
		Present:           s.Device.IsPresent(),
		InterruptAsserted: s.Device.IsInterruptAsserted(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleDial drives HandleDial directly, bypassing the AT command parser
// entirely; it exists for operators and tests that want to place a call
// without simulating guest register writes.
func (s *Server) handleDial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "", http.StatusMethodNotAllowed)
		return
	}

	type dialRequest struct {
		Number string `json:"number"`
	}

	var req dialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Number == "" {
		s.sendError(w, "'number' field is required", http.StatusBadRequest)
		return
	}

	var errorStatus string
	s.Device.HandleDial(req.Number, &errorStatus)
	if errorStatus != "" {
		s.Logger.Error("dial failed", "number", req.Number, "error", errorStatus)
		s.sendError(w, errorStatus, http.StatusInternalServerError)
		return
	}

	s.Logger.Info("dial scheduled", "number", req.Number)
	w.WriteHeader(http.StatusAccepted)
}
