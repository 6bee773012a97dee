package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivgtz/idrone-platform/internal/config"
	"github.com/ivgtz/idrone-platform/internal/models"
	"github.com/ivgtz/idrone-platform/internal/platformlog"
	"github.com/ivgtz/idrone-platform/internal/raster"
	"github.com/ivgtz/idrone-platform/internal/recorder"
	"github.com/ivgtz/idrone-platform/internal/route"
	"github.com/ivgtz/idrone-platform/internal/transport"
	"github.com/ivgtz/idrone-platform/internal/wireproto"
)

const version = "0.3.1-dev"

// mergeSignalDefaults fills any zero-valued field of a per-request
// SignalServerConfig from this process's static RF-coverage defaults,
// the same "request overrides file config" precedence the route package's
// callers use elsewhere.
func mergeSignalDefaults(req models.SignalServerConfig, defaults config.SignalConfig) models.SignalServerConfig {
	if req.SDFDirectory == "" {
		req.SDFDirectory = defaults.SDFDirectory
	}
	if req.PropagationModel == "" {
		req.PropagationModel = defaults.PropagationModel
	}
	if req.ResolutionM == 0 {
		req.ResolutionM = float64(defaults.Resolution)
	}
	if req.RadiusKM == 0 {
		req.RadiusKM = defaults.Radius
	}
	if req.OutputFile == "" {
		req.OutputFile = filepath.Join(defaults.OutputDirectory, fmt.Sprintf("mission-%d", time.Now().UnixNano()))
	}
	return req
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	fmt.Printf("idrone-platform Planner v%s\n", version)
	fmt.Println("Route planning: raster coverage -> k-NN graph -> VRP solve")
	fmt.Println()

	fs := flag.NewFlagSet("planner", flag.ExitOnError)
	endpoints, err := config.ParseFlags(fs, os.Args[1:], false)
	if err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(endpoints.ConfigPath)
	if err != nil {
		log.Fatalf("loading config from %s: %v", endpoints.ConfigPath, err)
	}

	logBuffer := platformlog.New(cfg.Server.RingBufferSize)
	fileSink, err := platformlog.NewFileSink(cfg.Server.LogDir, "planner", time.Now())
	if err != nil {
		log.Fatalf("opening log file sink: %v", err)
	}
	defer fileSink.Close()
	platformlog.Setup(logBuffer, fileSink)

	log.Printf("configuration loaded from %s", endpoints.ConfigPath)

	session, err := recorder.NewSession(cfg.Recorder.BaseDir, time.Now())
	if err != nil {
		log.Fatalf("starting recorder session: %v", err)
	}
	rec := recorder.New(session, "planner")
	defer rec.Close()

	var status atomic.Value
	status.Store(models.PlannerExpectingData)

	pldEndpoint := fmt.Sprintf("%s:%d", endpoints.PLDAddress, endpoints.PLDPort)

	var server *transport.Server
	server = transport.New(transport.Handlers{
		OnConnect: func() {
			log.Printf("connected to PLD at %s", pldEndpoint)
		},
		OnMessage: func(msg *wireproto.Message) {
			if msg.Tag != wireproto.TagPlannerMessage {
				return
			}
			if status.Load().(models.PlannerStatus) == models.PlannerCalculating {
				rec.Log.WriteLine("dropping planner_message: already calculating")
				return
			}
			go handlePlannerMessage(server, rec, cfg, &status, msg.PlannerMessage)
		},
		OnError: func(kind transport.ErrorKind, err error) {
			log.Printf("transport error (%s): %v", kind, err)
		},
	})

	if err := server.Connect(pldEndpoint); err != nil {
		log.Fatalf("connecting to PLD at %s: %v", pldEndpoint, err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publishStatus(ctx, server, &status)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Planner is running. Press Ctrl+C to stop.")
	sig := <-sigChan
	log.Printf("received signal %v, shutting down", sig)
	cancel()
	log.Println("shutdown complete")
}

// handlePlannerMessage runs the full raster + routing pipeline for one
// compute request and replies with either a response list or an ERROR
// status, returning to EXPECTING_DATA either way.
func handlePlannerMessage(server *transport.Server, rec *recorder.Recorder, cfg *config.Config, status *atomic.Value, req *wireproto.PlannerMessagePayload) {
	status.Store(models.PlannerCalculating)
	defer status.Store(models.PlannerExpectingData)

	sigCfg := mergeSignalDefaults(req.SignalServerConfig, cfg.Signal)

	matrix, bounds, err := raster.Generate(context.Background(), cfg.Signal.RFToolPath, sigCfg)
	if err != nil {
		rec.Log.WriteLine(fmt.Sprintf("raster generation failed: %v", err))
		_ = server.Deliver(wireproto.NewStatus("ERROR"))
		return
	}

	points := raster.CoveragePoints(matrix, bounds, cfg.Route.CoverageFloorDBm)
	coverageCoords := make([]models.Coordinate, len(points))
	for i, p := range points {
		coverageCoords[i] = p.Coordinate
	}

	params := route.PlanParams{
		MaxNeighbor:             sigCfg.MaxNeighbor,
		MaxNeighborDistanceM:    sigCfg.MaxNeighborDistM,
		MaxDistanceForNeighborM: sigCfg.MaxDistNeighborM,
		SpanCoefficient:         cfg.Route.SpanCoefficient,
		SolverTimeLimit:         time.Duration(cfg.Route.SolverTimeoutMs) * time.Millisecond,
	}

	results, err := route.Plan(req.DroneData, coverageCoords, params)
	if err != nil {
		rec.Log.WriteLine(fmt.Sprintf("route planning failed: %v", err))
		_ = server.Deliver(wireproto.NewStatus("ERROR"))
		return
	}

	items := make([]wireproto.PlannerResponsePath, len(results))
	for i, r := range results {
		lat := make([]float64, len(r.Path))
		lon := make([]float64, len(r.Path))
		for j, c := range r.Path {
			lat[j] = c.Lat
			lon[j] = c.Lon
		}
		items[i] = wireproto.PlannerResponsePath{Lat: lat, Lon: lon}
	}

	resp := &wireproto.Message{Tag: wireproto.TagPlannerResponseList, PlannerResponseList: &wireproto.PlannerResponseListPayload{Items: items}}
	if err := server.Deliver(resp); err != nil {
		rec.Log.WriteLine(fmt.Sprintf("sending planner_response_list: %v", err))
	}
}

// publishStatus sends the 1Hz status heartbeat until ctx is cancelled.
func publishStatus(ctx context.Context, server *transport.Server, status *atomic.Value) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		s := status.Load().(models.PlannerStatus)
		_ = server.Deliver(wireproto.NewStatus(string(s)))
	}
}
