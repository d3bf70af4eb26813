package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/kenaz/featureflag"
	"github.com/aukilabs/kenaz/geometry"
	kenazhttp "github.com/aukilabs/kenaz/http"
	"github.com/aukilabs/kenaz/modules"
	"github.com/aukilabs/kenaz/modules/dagaz"
	"github.com/aukilabs/kenaz/sim"
	kwebsocket "github.com/aukilabs/kenaz/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Kenaz version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "kenaz_info",
		Help:        "Kenaz information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"KENAZ_ADDR"                  help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"KENAZ_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"KENAZ_PUBLIC_ENDPOINT"       help:"The public endpoint where this Kenaz server is reachable."`
	LogLevel           string        `cli:""        env:"KENAZ_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"KENAZ_LOG_INDENT"            help:"Indent logs."`
	SyncClockInterval  time.Duration `cli:",hidden" env:"KENAZ_SYNC_CLOCK_INTERVAL"   help:"Client sync clock (heartbeat) message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"KENAZ_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle client will be disconnected"`
	FrameDuration      time.Duration `cli:",hidden" env:"KENAZ_FRAME_DURATION"        help:"The duration of a simulated frame."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"KENAZ_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	ShutdownTimeout    time.Duration `cli:",hidden" env:"KENAZ_SHUTDOWN_TIMEOUT"      help:"Time given to in-flight requests to complete when stopping."`
	World              worldConfig   `cli:",hidden" env:"-"                           help:"Simulated world configuration."`
	Quads              quadsConfig   `cli:",hidden" env:"-"                           help:"Quad index configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"KENAZ_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                           help:"Show version."`
	Help               bool          `cli:""        env:"-"                           help:"Show help."`
}

type worldConfig struct {
	HalfSize    float64 `cli:",hidden" env:"KENAZ_WORLD_HALF_SIZE"     help:"Half the size of the simulated world cube."`
	MaxDepth    int     `cli:",hidden" env:"KENAZ_WORLD_MAX_DEPTH"     help:"The maximum subdivision depth of the world index."`
	Bodies      int     `cli:",hidden" env:"KENAZ_WORLD_BODIES"        help:"The number of moving bodies."`
	BodyMaxSize float64 `cli:",hidden" env:"KENAZ_WORLD_BODY_MAX_SIZE" help:"The largest half extent of a body."`
	MaxSpeed    float64 `cli:",hidden" env:"KENAZ_WORLD_MAX_SPEED"     help:"The largest speed of a body on each axis, per second."`
	EscapeRatio float64 `cli:",hidden" env:"KENAZ_WORLD_ESCAPE_RATIO"  help:"The share of bodies allowed to leave the world bounds."`
	OrbitSpeed  float64 `cli:",hidden" env:"KENAZ_WORLD_ORBIT_SPEED"   help:"The camera orbit speed, in radians per second."`
	QueryRadius float64 `cli:",hidden" env:"KENAZ_WORLD_QUERY_RADIUS"  help:"The half extent of the volumes queried every frame."`
	Seed        int64   `cli:",hidden" env:"KENAZ_WORLD_SEED"          help:"The seed used to place the bodies."`
}

type quadsConfig struct {
	HalfSize float64 `cli:",hidden" env:"KENAZ_QUADS_HALF_SIZE" help:"Half the size of the quad index cube."`
	MaxDepth int     `cli:",hidden" env:"KENAZ_QUADS_MAX_DEPTH" help:"The maximum subdivision depth of the quad index."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		SyncClockInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		FrameDuration:      time.Millisecond * 16,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    time.Second * 10,
		World: worldConfig{
			HalfSize:    500,
			MaxDepth:    8,
			Bodies:      2000,
			BodyMaxSize: 5,
			MaxSpeed:    20,
			EscapeRatio: 0.01,
			OrbitSpeed:  0.2,
			QueryRadius: 50,
			Seed:        1,
		},
		Quads: quadsConfig{
			HalfSize: 1000,
			MaxDepth: 8,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Kenaz server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	featureFlags, err := featureflag.Parse(conf.FeatureFlags)
	if err != nil {
		logs.Warn(err)
	}

	simulation, err := sim.NewSimulation(sim.Config{
		Bounds:       cube(conf.World.HalfSize),
		MaxDepth:     conf.World.MaxDepth,
		BodyCount:    conf.World.Bodies,
		BodyMaxSize:  float32(conf.World.BodyMaxSize),
		MaxSpeed:     float32(conf.World.MaxSpeed),
		EscapeRatio:  conf.World.EscapeRatio,
		OrbitRadius:  float32(conf.World.HalfSize * 1.5),
		OrbitHeight:  float32(conf.World.HalfSize * 0.5),
		OrbitSpeed:   float32(conf.World.OrbitSpeed),
		QueryRadius:  float32(conf.World.QueryRadius),
		Seed:         conf.World.Seed,
		FeatureFlags: featureFlags,
	})
	if err != nil {
		logs.Fatal(errors.New("creating simulation failed").Wrap(err))
	}

	partition, err := dagaz.NewOctreePartition(cube(conf.Quads.HalfSize), conf.Quads.MaxDepth)
	if err != nil {
		logs.Fatal(errors.New("creating quad index failed").Wrap(err))
	}
	quads := dagaz.NewModule(partition)

	hub := newFrameHub()

	var simulated atomic.Bool
	readinessCheck := simulated.Load

	var service http.ServeMux
	service.Handle("/health", kenazhttp.HandleWithCORS(http.HandlerFunc(kenazhttp.HandleHealthCheck)))
	service.Handle("/version", kenazhttp.HandleWithCORS(http.HandlerFunc(kenazhttp.HandleVersion(version))))
	service.Handle("/ready", kenazhttp.HandleWithCORS(http.HandlerFunc(kenazhttp.HandleReadyCheck(readinessCheck))))
	service.Handle("/debug-info", kenazhttp.HandleWithCORS(kenazhttp.HandleJSON(func() any {
		return simulation.DebugInfo()
	})))
	service.Handle("/quads/debug-info", kenazhttp.HandleWithCORS(kenazhttp.HandleJSON(func() any {
		return partition.GetDebugInfo()
	})))
	service.Handle("/frames", kenazhttp.HandleWithCORS(hub.handleFrames(ctx)))

	service.Handle("/", kenazhttp.HandleWithCORS(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h kwebsocket.Handler = &kwebsocket.QuadHandler{
				ClientSyncClockInterval: conf.SyncClockInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
				Modules:                 []modules.Module{quads},
			}
			h = kwebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = kwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			kwebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runFrames(ctx, simulation, hub, conf.FrameDuration, func() {
			simulated.Store(true)
		})
	}()

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", kenazhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", kenazhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("feature_flags", featureFlags.Names()).
		Info("starting kenaz server")

	metricsPathFormatter := kenazhttp.NewMetricsPathFormatter(
		"/health",
		"/version",
		"/ready",
		"/debug-info",
		"/quads/debug-info",
		"/frames",
		"/ping",
	)

	err = kenazhttp.ListenAndServe(ctx,
		kenazhttp.Shutdown{
			Timeout: conf.ShutdownTimeout,
			Prepare: func() { simulated.Store(false) },
		},
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service, metricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
	if err != nil {
		logs.Error(err)
	}

	cancel()
	wg.Wait()
}

func cube(halfSize float64) geometry.AABB {
	return geometry.NewAABB(
		geometry.Splat(float32(-halfSize)),
		geometry.Splat(float32(halfSize)),
	)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.FrameDuration <= 0 {
		return errors.New("frame duration is not positive").
			WithTag("frame_duration", conf.FrameDuration)
	}

	if conf.World.HalfSize <= 0 || conf.Quads.HalfSize <= 0 {
		return errors.New("world sizes have to be positive").
			WithTag("world_half_size", conf.World.HalfSize).
			WithTag("quads_half_size", conf.Quads.HalfSize)
	}

	if conf.World.EscapeRatio < 0 || conf.World.EscapeRatio > 1 {
		return errors.New("escape ratio has to be between 0 and 1").
			WithTag("escape_ratio", conf.World.EscapeRatio)
	}

	return nil
}
