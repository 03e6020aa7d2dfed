// Package server implements the remote counterpart to internal/remote's
// Client: a JSON-over-HTTP server exposing /jin/v1/ping, /jin/v1/refs,
// /jin/v1/objects/fetch, and /jin/v1/refs/push over a single jin object
// and ref store. Grounded on the teacher's internal/server/server.go
// (ServerOptions, Stats, NewServer/Configure/Init/Start/Stop, the
// logMiddleware and JSON response helpers), retargeted from a
// multi-repository host (CreateRepo/DeleteRepo/ListRepos) to jin's
// single shared layer-ref store, since a jin remote is one private store
// serving the fixed layers/* refspec rather than many named
// repositories.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jinconfig/jin/internal/objstore"
)

const (
	APIVersion = "v1"

	DefaultPort = 8080
	DefaultHost = "0.0.0.0"

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 60 * time.Second
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized    = errors.New("unauthorized")
)

// ServerOptions configures one server instance.
type ServerOptions struct {
	Host        string
	Port        int
	Verbose     bool
	TLSCertFile string
	TLSKeyFile  string
	// Tokens, if non-empty, restricts every request to bearer tokens in
	// this set. Empty means no authentication is enforced.
	Tokens map[string]bool
}

// Stats tracks request counters, surfaced for operational visibility.
type Stats struct {
	StartTime       time.Time
	RequestsHandled int64
	ActiveRequests  int
	mutex           sync.Mutex
}

// Server serves one jin object+ref store's layer refs over HTTP.
type Server struct {
	Options ServerOptions
	Stats   Stats

	store *objstore.Store
	refs  *objstore.RefStore

	router *http.ServeMux
	server *http.Server
}

// NewServer wraps store/refs with default options; call Configure to
// override before Init.
func NewServer(store *objstore.Store, refs *objstore.RefStore) *Server {
	return &Server{
		Options: ServerOptions{Host: DefaultHost, Port: DefaultPort},
		Stats:   Stats{StartTime: time.Now()},
		store:   store,
		refs:    refs,
		router:  http.NewServeMux(),
	}
}

// Configure merges non-zero fields of options into the server's options.
func (s *Server) Configure(options ServerOptions) {
	if options.Host != "" {
		s.Options.Host = options.Host
	}
	if options.Port != 0 {
		s.Options.Port = options.Port
	}
	s.Options.Verbose = options.Verbose
	s.Options.TLSCertFile = options.TLSCertFile
	s.Options.TLSKeyFile = options.TLSKeyFile
	if options.Tokens != nil {
		s.Options.Tokens = options.Tokens
	}
}

// Init registers routes and prepares the underlying http.Server.
func (s *Server) Init() error {
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.Options.Host, s.Options.Port),
		Handler:      s.logMiddleware(s.authMiddleware(s.router)),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}
	return nil
}

// Start blocks serving until Stop is called or the listener fails.
func (s *Server) Start() error {
	log.Printf("jin remote server starting on %s:%d", s.Options.Host, s.Options.Port)
	var err error
	if s.Options.TLSCertFile != "" && s.Options.TLSKeyFile != "" {
		err = s.server.ListenAndServeTLS(s.Options.TLSCertFile, s.Options.TLSKeyFile)
	} else {
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Println("shutting down jin remote server")
	return s.server.Shutdown(ctx)
}

// Handler returns the fully wrapped HTTP handler built by Init, for
// embedding in a test server or an alternate listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/jin/"+APIVersion+"/ping", s.handlePing)
	s.router.HandleFunc("/jin/"+APIVersion+"/refs", s.handleListRefs)
	s.router.HandleFunc("/jin/"+APIVersion+"/objects/fetch", s.handleFetchObjects)
	s.router.HandleFunc("/jin/"+APIVersion+"/refs/push", s.handlePushRefs)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.Options.Tokens) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix || !s.Options.Tokens[auth[len(prefix):]] {
			writeErrorResponse(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.Stats.mutex.Lock()
		s.Stats.RequestsHandled++
		s.Stats.ActiveRequests++
		s.Stats.mutex.Unlock()

		next.ServeHTTP(w, r)

		s.Stats.mutex.Lock()
		s.Stats.ActiveRequests--
		s.Stats.mutex.Unlock()
		if s.Options.Verbose {
			log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// refState mirrors remote.RefState's wire shape without importing the
// client package (server and client intentionally share no Go types,
// only the JSON contract).
type refState struct {
	Path     string `json:"path"`
	CommitID string `json:"commit_id"`
}

func (s *Server) handleListRefs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.refs.ListRefs("layers/")
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]refState, 0, len(entries))
	for _, e := range entries {
		out = append(out, refState{Path: e.Path, CommitID: e.CommitID})
	}
	writeJSONResponse(w, http.StatusOK, out)
}

func (s *Server) handleFetchObjects(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Want []string `json:"want"`
		Have []string `json:"have"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	exclude := make(map[string]bool)
	for _, h := range req.Have {
		if h == "" {
			continue
		}
		if err := walkReachable(s.store, h, exclude); err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, err)
			return
		}
	}

	seen := make(map[string]bool)
	out := make(map[string]string)
	for _, wantHash := range req.Want {
		if wantHash == "" || seen[wantHash] {
			continue
		}
		if err := collectWanted(s.store, wantHash, exclude, seen, out); err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, out)
}

func (s *Server) handlePushRefs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OperationID string            `json:"operation_id"`
		Objects     map[string]string `json:"objects"`
		Updates     []struct {
			Path     string `json:"path"`
			Expected string `json:"expected"`
			New      string `json:"new"`
		} `json:"updates"`
		Force bool `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	for hash, hexContent := range req.Objects {
		if s.store.Has(hash) {
			continue
		}
		content, err := hex.DecodeString(hexContent)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, fmt.Errorf("object %s has malformed encoding: %w", hash, err))
			return
		}
		if err := s.store.ImportRaw(hash, content); err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, err)
			return
		}
	}

	txn := objstore.BeginTxn(s.refs)
	for _, u := range req.Updates {
		expected := u.Expected
		if req.Force {
			current, ok, err := s.refs.Read(u.Path)
			if err != nil {
				writeErrorResponse(w, http.StatusInternalServerError, err)
				return
			}
			if ok {
				expected = current
			} else {
				expected = ""
			}
		}
		if err := txn.StageRefUpdate(u.Path, expected, u.New); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
	}
	if err := txn.CommitTxn(); err != nil {
		var conflict *objstore.CASConflict
		if errors.As(err, &conflict) {
			writeErrorResponse(w, http.StatusConflict, err)
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding JSON response: %v", err)
		}
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, err error) {
	writeJSONResponse(w, status, map[string]string{"error": err.Error()})
}

// walkReachable marks every object reachable from a commit (the commit
// itself, its tree, all blob/tree entries, and its full parent chain) as
// seen, mirroring internal/remote/push.go's client-side walk so fetch
// can exclude everything the caller already has.
func walkReachable(store *objstore.Store, commitHash string, seen map[string]bool) error {
	if commitHash == "" || seen[commitHash] {
		return nil
	}
	commit, err := store.ReadCommit(commitHash)
	if err != nil {
		return nil // unknown ancestor on our side; nothing more to exclude
	}
	seen[commitHash] = true
	if err := walkTree(store, commit.Tree, seen); err != nil {
		return err
	}
	for _, p := range commit.Parents {
		if err := walkReachable(store, p, seen); err != nil {
			return err
		}
	}
	return nil
}

func walkTree(store *objstore.Store, treeHash string, seen map[string]bool) error {
	if treeHash == "" || seen[treeHash] {
		return nil
	}
	seen[treeHash] = true
	entries, err := store.ReadTree(treeHash)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		if e.Kind == objstore.KindTree {
			if err := walkTree(store, e.Hash, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectWanted walks everything reachable from a wanted commit not
// already in exclude, framing each new object's raw on-disk bytes for
// the wire (hex-encoded, matching Client.FetchObjects' decoding).
func collectWanted(store *objstore.Store, commitHash string, exclude, seen map[string]bool, out map[string]string) error {
	if commitHash == "" || seen[commitHash] {
		return nil
	}
	seen[commitHash] = true
	if !exclude[commitHash] {
		if err := frameObject(store, commitHash, out); err != nil {
			return err
		}
	}
	commit, err := store.ReadCommit(commitHash)
	if err != nil {
		return fmt.Errorf("failed to read wanted commit %s: %w", commitHash, err)
	}
	if err := collectTree(store, commit.Tree, exclude, seen, out); err != nil {
		return err
	}
	for _, p := range commit.Parents {
		if err := collectWanted(store, p, exclude, seen, out); err != nil {
			return err
		}
	}
	return nil
}

func collectTree(store *objstore.Store, treeHash string, exclude, seen map[string]bool, out map[string]string) error {
	if treeHash == "" || seen[treeHash] {
		return nil
	}
	seen[treeHash] = true
	if !exclude[treeHash] {
		if err := frameObject(store, treeHash, out); err != nil {
			return err
		}
	}
	entries, err := store.ReadTree(treeHash)
	if err != nil {
		return fmt.Errorf("failed to read tree %s: %w", treeHash, err)
	}
	for _, e := range entries {
		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		if !exclude[e.Hash] {
			if err := frameObject(store, e.Hash, out); err != nil {
				return err
			}
		}
		if e.Kind == objstore.KindTree {
			if err := collectTree(store, e.Hash, exclude, seen, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func frameObject(store *objstore.Store, hash string, out map[string]string) error {
	raw, err := store.ExportRaw(hash)
	if err != nil {
		return fmt.Errorf("failed to export object %s: %w", hash, err)
	}
	out[hash] = hex.EncodeToString(raw)
	return nil
}
