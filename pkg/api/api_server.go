package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mproffitt/folden/pkg/handler"
	"github.com/mproffitt/folden/pkg/server"
	log "github.com/sirupsen/logrus"
)

// Supervisor the operations the API serves
type Supervisor interface {
	Register(ctx context.Context, req server.RegisterRequest) (server.Result, error)
	Start(ctx context.Context, dir string) (server.Result, error)
	Stop(ctx context.Context, dir string) error
	Modify(ctx context.Context, req server.ModifyRequest) (server.Result, error)
	Status(dir string, all bool) (map[string]server.Summary, error)
	Trace(ctx context.Context, dir string) (<-chan handler.TraceRecord, error)
	Registry() handler.Registry
}

// maxBodyBytes upper bound on a request body
const maxBodyBytes = 1 << 20

// Server the HTTP front of the daemon
type Server struct {
	address    string
	supervisor Supervisor
	mux        *http.ServeMux

	listener net.Listener
	server   *http.Server
}

// NewServer Create an API server for supervisor listening on address
func NewServer(address string, supervisor Supervisor) *Server {
	s := &Server{
		address:    address,
		supervisor: supervisor,
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/register", s.handleRegister)
	s.mux.HandleFunc("/api/start", s.handleStart)
	s.mux.HandleFunc("/api/stop", s.handleStop)
	s.mux.HandleFunc("/api/modify", s.handleModify)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/trace", s.handleTrace)
	s.mux.HandleFunc("/api/types", s.handleTypes)

	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler the routes of the API
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start Listens on the configured address and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("API server error - %s", err.Error())
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	log.Infof("API server listening on %s", listener.Addr().String())
	return nil
}

// Addr the address the server listens on, empty before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown Stops accepting requests and waits for open ones to finish
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req server.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.supervisor.Register(r.Context(), req)
	s.writeResult(w, res, err)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req DirectoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.supervisor.Start(r.Context(), req.Directory)
	s.writeResult(w, res, err)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req DirectoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	err := s.supervisor.Stop(r.Context(), req.Directory)
	s.writeResult(w, server.Result{}, err)
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var req server.ModifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.supervisor.Modify(r.Context(), req)
	s.writeResult(w, res, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	query := r.URL.Query()
	all, _ := strconv.ParseBool(query.Get("all"))
	status, err := s.supervisor.Status(strings.TrimSpace(query.Get("directory")), all)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{Directories: status})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, TypesResponse{Types: s.supervisor.Registry().Types()})
}

// decode reads a JSON body from a POST request, writing the error response
// itself when the request is unusable
func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return false
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %s", err.Error()))
		return false
	}
	return true
}

func (s *Server) writeResult(w http.ResponseWriter, res server.Result, err error) {
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ResultResponse{Warnings: res.Warnings})
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	code, status := classify(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("Request failed - %s", err.Error())
	} else {
		log.Debugf("Request rejected - %s", err.Error())
	}
	s.writeError(w, status, code, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("Failed to encode response - %s", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: message, Code: code})
}
