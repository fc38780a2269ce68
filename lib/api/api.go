package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/pprof"
	"slices"
	"sync"
	"time"

	"github.com/fosdem/vaframes/lib/api/docs"
	"github.com/fosdem/vaframes/lib/config"
	"github.com/fosdem/vaframes/lib/imgsource"
	"github.com/fosdem/vaframes/lib/metrics"
	"github.com/fosdem/vaframes/lib/stats"
	"github.com/fosdem/vaframes/lib/surfacepool"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Api struct {
	srv   http.Server
	mux   *http.ServeMux
	cfg   *config.ApiCfg
	pools map[string]*surfacepool.Pool

	Stats *stats.Stats
	// Images are the pools whose still image can be replaced over PUT.
	Images map[string]*imgsource.ImgSource
	// ShutdownRequested is called by /api/kill.
	ShutdownRequested func()

	wsMu      sync.Mutex
	wsClients map[*websocket.Conn]bool

	log *slog.Logger
}

func New(cfg *config.ApiCfg, pools map[string]*surfacepool.Pool, st *stats.Stats) *Api {
	a := &Api{}
	a.cfg = cfg
	a.mux = http.NewServeMux()
	a.pools = pools
	a.srv.Addr = cfg.Bind
	a.srv.Handler = a.mux
	a.wsClients = make(map[*websocket.Conn]bool)
	a.Stats = st
	a.log = slog.With("module", "api")

	docs.SwaggerInfo.Host = cfg.Bind

	if a.cfg.EnableProfiler {
		a.mux.HandleFunc("/prof", a.profileCPU)
	}
	a.mux.HandleFunc("POST /api/kill", a.suicide)
	a.mux.HandleFunc("GET /api/stats", a.getStats)
	a.mux.HandleFunc("GET /api/pools", a.getPools)
	a.mux.HandleFunc("GET /api/ws", a.handleWebsocket)
	a.mux.HandleFunc("GET /api/media/pool/{name}", a.handlePoolMedia)
	a.mux.HandleFunc("GET /api/media/pool/{name}/{format}", a.handlePoolMedia)
	a.mux.HandleFunc("PUT /api/media/pool/{name}", a.handlePoolImage)
	a.mux.Handle("GET /metrics", metrics.Handler())
	a.mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	return a
}

func (a *Api) Handler() http.Handler {
	return a.mux
}

func (a *Api) Serve() error {
	err := a.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and closes all websockets.
func (a *Api) Shutdown(ctx context.Context) error {
	a.wsMu.Lock()
	for ws := range a.wsClients {
		_ = ws.Close()
	}
	a.wsMu.Unlock()
	return a.srv.Shutdown(ctx)
}

func (a *Api) profileCPU(w http.ResponseWriter, _ *http.Request) {
	err := pprof.StartCPUProfile(w)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not start CPU profile: %s", err), http.StatusInternalServerError)
		return
	}
	time.Sleep(10 * time.Second)
	pprof.StopCPUProfile()
}

// @Summary	Stop the daemon, releasing all frames
// @Router		/api/kill [post]
// @Tags		base
// @Success	200
func (a *Api) suicide(w http.ResponseWriter, _ *http.Request) {
	a.log.Info("shutting down as per api request")
	if a.ShutdownRequested != nil {
		a.ShutdownRequested()
	}
	_, err := fmt.Fprintf(w, "\"ok\"\n")
	if err != nil {
		a.log.Error("could not write response", "err", err)
		return
	}
}

// @Summary	Get allocator and pool statistics
// @Router		/api/stats [get]
// @Tags		base
// @Produce	json
// @Success	200	{object}	stats.Snapshot
func (a *Api) getStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	err := encoder.Encode(a.Stats.Snapshot())
	if err != nil {
		http.Error(w, fmt.Sprintf("could not encode stats: %s", err), http.StatusInternalServerError)
		return
	}
}

// @Summary	List the configured surface pools
// @Router		/api/pools [get]
// @Tags		pools
// @Produce	json
// @Success	200	{array}	surfacepool.Stats
func (a *Api) getPools(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(a.pools))
	for k := range a.pools {
		names = append(names, k)
	}
	slices.Sort(names)

	result := make([]surfacepool.Stats, 0, len(names))
	for _, k := range names {
		result = append(result, a.pools[k].Stats())
	}

	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	err := encoder.Encode(result)
	if err != nil {
		http.Error(w, fmt.Sprintf("couldn't encode pools: %s", err), http.StatusInternalServerError)
		return
	}
}
