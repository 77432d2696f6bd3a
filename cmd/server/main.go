package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "redstonemusic.ai/internal/persistence/log"
	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/engine"
	"redstonemusic.ai/internal/sim/tuning"
	"redstonemusic.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/generator.yaml", "path to generator.yaml (missing file means defaults)")
		addr       = flag.String("addr", "", "http listen address (default: server.addr from config)")
		outDir     = flag.String("out", "", "artifact directory (default: server.out_dir from config)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite generation index")
		noJournal  = flag.Bool("disable_journal", false, "disable the generation journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", *configPath)
		tune = tuning.Defaults()
	}
	if v := strings.TrimSpace(*addr); v != "" {
		tune.Server.Addr = v
	}
	if v := strings.TrimSpace(*outDir); v != "" {
		tune.Server.OutDir = v
	}
	if err := os.MkdirAll(tune.Server.OutDir, 0o755); err != nil {
		logger.Fatalf("out dir: %v", err)
	}

	counters := &generationCounters{}
	opts := []engine.Option{
		engine.WithOutDir(tune.Server.OutDir),
		engine.WithRecorder(counters),
	}

	// Optional: read-model index backend (downloads fall back to memory).
	idx, err := openRuntimeIndex(tune.Server.DBPath, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	var locator ws.Locator
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(catalogs.Palette(), catalogs.Digest(), tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
		opts = append(opts, engine.WithRecorder(idx))
		locator = idx
	}

	if !*noJournal && tune.Server.JournalDir != "" {
		j := persistlog.NewJournal(tune.Server.JournalDir)
		defer j.Close()
		opts = append(opts, engine.WithRecorder(j))
	}

	gen := engine.New(logger, opts...)
	srv := ws.NewServer(gen, tune, locator, logger)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	srv.Routes(mux)
	mux.HandleFunc("/metrics", metricsHandler(counters, idx, srv.Busy))

	enableAdminHTTP := envBool("RM_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("RM_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP && idx != nil {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/generations", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			limit := 20
			if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 500 {
				limit = n
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			recent, err := idx.Recent(ctx2, limit)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "generations": recent, "index": idx.Stats()})
		})
	} else {
		logger.Printf("admin endpoints disabled (RM_ENABLE_ADMIN_HTTP=false or no index)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (RM_ENABLE_PPROF_HTTP=false)")
	}

	hs := &http.Server{
		Addr:              tune.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = hs.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s out=%s palette=%s", tune.Server.Addr, tune.Server.OutDir, catalogs.Digest()[:12])
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
