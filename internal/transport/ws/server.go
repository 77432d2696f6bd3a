package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"redstonemusic.ai/internal/persistence/format"
	"redstonemusic.ai/internal/protocol"
	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/engine"
	"redstonemusic.ai/internal/sim/tuning"
)

// Generator runs one generation. *engine.Engine satisfies it.
type Generator interface {
	Generate(engine.Request) engine.Result
}

// Locator finds a past result by id, e.g. the sqlite index.
type Locator interface {
	Lookup(ctx context.Context, id string) (engine.Result, bool, error)
}

// Server accepts GENERATE messages over websocket and runs at most one
// generation at a time.
type Server struct {
	gen   Generator
	index Locator
	tune  tuning.Tuning
	log   *log.Logger

	upgrader websocket.Upgrader
	busy     atomic.Bool

	mu      sync.Mutex
	results map[string]engine.Result
	order   []string
}

// recentResults bounds the in-memory result cache; older ids are served from
// the index when one is configured.
const recentResults = 256

func NewServer(gen Generator, tune tuning.Tuning, index Locator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		gen:   gen,
		index: index,
		tune:  tune,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		results: map[string]engine.Result{},
	}
}

// Routes registers the websocket endpoint, downloads and health check.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/ws", s.Handler())
	mux.HandleFunc("GET /v1/projections/{file}", s.DownloadHandler())
	mux.HandleFunc("GET /healthz", s.HealthHandler())
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, 32)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(v any) {
			b, err := json.Marshal(v)
			if err != nil {
				return
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}

		// Reader loop.
		var jobs sync.WaitGroup
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				send(protocol.NewError("", protocol.ErrBadRequest, "malformed json"))
				continue
			}
			if base.Type != protocol.TypeGenerate {
				send(protocol.NewError("", protocol.ErrBadRequest, "unexpected message type "+base.Type))
				continue
			}

			req, reqID, perr := s.parseGenerate(msg)
			if perr != nil {
				send(*perr)
				continue
			}
			if !s.busy.CompareAndSwap(false, true) {
				send(protocol.NewError(reqID, protocol.ErrBusy, "a generation is already running"))
				continue
			}
			req.Progress = func(st engine.Stage, pct int) {
				send(protocol.ProgressMsg{Type: protocol.TypeProgress, RequestID: reqID, Stage: string(st), Percent: pct})
			}
			jobs.Add(1)
			go func() {
				defer jobs.Done()
				msg := s.run(req, reqID)
				s.busy.Store(false)
				send(msg)
			}()
		}
		jobs.Wait()
	}
}

func (s *Server) parseGenerate(msg []byte) (engine.Request, string, *protocol.ErrorMsg) {
	var m protocol.GenerateMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		e := protocol.NewError("", protocol.ErrBadRequest, err.Error())
		return engine.Request{}, "", &e
	}
	fail := func(text string) (engine.Request, string, *protocol.ErrorMsg) {
		e := protocol.NewError(m.RequestID, protocol.ErrBadRequest, text)
		return engine.Request{}, m.RequestID, &e
	}
	if m.ProtocolVersion != "" && m.ProtocolVersion != protocol.Version {
		return fail("bad protocol_version")
	}
	if err := protocol.Validate(protocol.SchemaGenerate, msg); err != nil {
		return fail(err.Error())
	}
	if limit := s.tune.Server.MaxNotes; limit > 0 && len(m.Notes) > limit {
		return fail("too many notes")
	}

	proj := s.tune.Projection
	if len(m.Config) > 0 {
		p, err := proj.Overlay(m.Config)
		if err != nil {
			return fail(err.Error())
		}
		proj = p
	}
	name := m.Format
	if name == "" {
		name = proj.Format
	}
	f, err := format.ParseFormat(name)
	if err != nil {
		return fail(err.Error())
	}
	opt := s.tune.Optimize
	if m.Optimize != nil {
		opt.Enabled = *m.Optimize
	}

	req := engine.Request{Notes: m.Notes, Format: f, Projection: proj, Optimize: opt}
	if err := req.Validate(); err != nil {
		return fail(err.Error())
	}
	return req, m.RequestID, nil
}

func (s *Server) run(req engine.Request, reqID string) any {
	res := s.gen.Generate(req)
	s.remember(res)

	if !res.Success {
		code := protocol.ErrGenerationFailed
		if res.Error == "empty input" {
			code = protocol.ErrEmptyInput
		}
		s.log.Printf("generation %s failed: %s", res.ID, res.Error)
		return protocol.NewError(reqID, code, res.Error)
	}
	ext := filepath.Ext(res.FilePath)
	return protocol.ResultMsg{
		Type:        protocol.TypeResult,
		RequestID:   reqID,
		Result:      res,
		DownloadURL: "/v1/projections/" + res.ID + ext,
	}
}

func (s *Server) remember(res engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[res.ID]; !ok {
		s.order = append(s.order, res.ID)
	}
	s.results[res.ID] = res
	for len(s.order) > recentResults {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) lookup(ctx context.Context, id string) (engine.Result, bool) {
	s.mu.Lock()
	res, ok := s.results[id]
	s.mu.Unlock()
	if ok || s.index == nil {
		return res, ok
	}
	res, ok, err := s.index.Lookup(ctx, id)
	if err != nil {
		s.log.Printf("index lookup %s: %v", id, err)
		return engine.Result{}, false
	}
	return res, ok
}

// DownloadHandler serves GET /v1/projections/{id}.{ext}.
func (s *Server) DownloadHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		file := r.PathValue("file")
		ext := path.Ext(file)
		id := strings.TrimSuffix(file, ext)
		f, err := format.ParseFormat(ext)
		if err != nil || id == "" {
			http.Error(rw, "bad projection name", http.StatusBadRequest)
			return
		}
		res, ok := s.lookup(r.Context(), id)
		if !ok || !res.Success || res.Format != f.String() {
			http.NotFound(rw, r)
			return
		}
		if f == format.FlatJSON {
			rw.Header().Set("Content-Type", "application/json")
		} else {
			rw.Header().Set("Content-Type", "application/octet-stream")
		}
		rw.Header().Set("Content-Disposition", `attachment; filename="`+res.Name+f.Ext()+`"`)
		http.ServeFile(rw, r, res.FilePath)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":              true,
			"busy":            s.busy.Load(),
			"protocol":        protocol.Version,
			"palette_digest":  catalogs.Digest(),
			"default_format":  s.tune.Projection.Format,
			"max_notes":       s.tune.Server.MaxNotes,
			"supported_types": []string{protocol.TypeGenerate},
		})
	}
}

// Busy reports whether a generation is running.
func (s *Server) Busy() bool { return s.busy.Load() }
