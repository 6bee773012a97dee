package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivgtz/idrone-platform/internal/config"
	"github.com/ivgtz/idrone-platform/internal/droneengine"
	"github.com/ivgtz/idrone-platform/internal/models"
	"github.com/ivgtz/idrone-platform/internal/platformlog"
	"github.com/ivgtz/idrone-platform/internal/recorder"
	"github.com/ivgtz/idrone-platform/internal/supervisor"
	"github.com/ivgtz/idrone-platform/internal/transport"
	"github.com/ivgtz/idrone-platform/internal/wireproto"
)

const version = "0.3.1-dev"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	fmt.Printf("idrone-platform Drone v%s\n", version)
	fmt.Println("Multi-vehicle mission execution engine")
	fmt.Println()

	fs := flag.NewFlagSet("drone", flag.ExitOnError)
	endpoints, err := config.ParseFlags(fs, os.Args[1:], false)
	if err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(endpoints.ConfigPath)
	if err != nil {
		log.Fatalf("loading config from %s: %v", endpoints.ConfigPath, err)
	}

	logBuffer := platformlog.New(cfg.Server.RingBufferSize)
	fileSink, err := platformlog.NewFileSink(cfg.Server.LogDir, "drone", time.Now())
	if err != nil {
		log.Fatalf("opening log file sink: %v", err)
	}
	defer fileSink.Close()
	platformlog.Setup(logBuffer, fileSink)

	log.Printf("configuration loaded from %s", endpoints.ConfigPath)

	var status atomic.Value
	status.Store(models.DroneUnknown)

	pldEndpoint := fmt.Sprintf("%s:%d", endpoints.PLDAddress, endpoints.PLDPort)

	bootCh := make(chan *wireproto.ConfigMissionPayload, 1)
	var sup *supervisor.Supervisor // assigned once the fleet is built

	var server *transport.Server
	server = transport.New(transport.Handlers{
		OnConnect: func() {
			log.Printf("connected to PLD at %s", pldEndpoint)
		},
		OnMessage: func(msg *wireproto.Message) {
			switch msg.Tag {
			case wireproto.TagConfigMission:
				select {
				case bootCh <- msg.ConfigMission:
				default:
				}
			case wireproto.TagDroneCommand:
				if sup == nil {
					return
				}
				sup.DispatchCommand(supervisor.DroneMessage{
					TypeCommand: msg.DroneCommand.TypeCommand,
					Command: droneengine.MissionCommand{
						Position:     msg.DroneCommand.Command.Position,
						AltitudeM:    msg.DroneCommand.Command.AltitudeM,
						SpeedMS:      msg.DroneCommand.Command.SpeedMS,
						FlyThrough:   msg.DroneCommand.Command.FlyThrough,
						CameraAction: msg.DroneCommand.Command.CameraAction,
					},
				})
			}
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

	log.Println("Drone module is running. Press Ctrl+C to stop.")

	select {
	case bootPayload := <-bootCh:
		status.Store(models.DroneStartingSim)
		sup = buildFleet(bootPayload, cfg, server, &status)

		startErr := make(chan error, 1)
		go func() { startErr <- sup.StartAll(ctx) }()
		status.Store(models.DroneExecutingMission)

		select {
		case sig := <-sigChan:
			log.Printf("received signal %v, shutting down", sig)
			cancel()
			<-startErr
		case err := <-startErr:
			if err != nil {
				status.Store(models.DroneError)
				log.Printf("fleet execution error: %v", err)
			}
		}

		if err := sup.FlushAllRecorders(); err != nil {
			log.Printf("flushing recorders: %v", err)
		}

	case sig := <-sigChan:
		log.Printf("received signal %v before any mission started, shutting down", sig)
		cancel()
	}

	log.Println("shutdown complete")
}

// buildFleet spins up one engine per vehicle named in the forwarded
// config_mission, wired into a fresh Supervisor that reports completion
// and errors back onto the PLD link.
func buildFleet(boot *wireproto.ConfigMissionPayload, cfg *config.Config, server *transport.Server, status *atomic.Value) *supervisor.Supervisor {
	n := boot.DroneData.NumDrones
	latch := droneengine.NewReleaseLatch()
	engines := make([]*droneengine.Engine, n)
	recorders := make([]*recorder.Recorder, n)

	session, err := recorder.NewSession(cfg.Recorder.BaseDir, time.Now())
	if err != nil {
		log.Fatalf("starting recorder session: %v", err)
	}

	var sup *supervisor.Supervisor
	onComplete := func(id string) { sup.OnDroneComplete(id) }
	onError := func(id string, err error) { sup.OnDroneError(id, err) }

	healthGate := time.Duration(cfg.Drone.HealthGateTimeoutMs) * time.Millisecond

	for i := 0; i < n; i++ {
		vehicleID := fmt.Sprintf("drone-%d", i)
		port := boot.DroneSim.BasePort + i
		recorders[i] = recorder.New(session, vehicleID)

		engines[i] = droneengine.NewEngine(droneengine.Config{
			VehicleID:         vehicleID,
			ConnectionURL:     fmt.Sprintf("127.0.0.1:%d", port),
			Autostart:         boot.DroneSim.Autostart,
			SpawnCommand:      fmt.Sprintf(cfg.Drone.SpawnCommandTpl, vehicleID, port),
			PIDRegistryPath:   cfg.Drone.PIDRegistryPath,
			HealthGateTimeout: healthGate,
			TakeoffAltitudeM:  boot.DroneSim.HomeAltitudeM,
			AllowPause:        boot.DroneSim.AllowPause || cfg.Drone.AllowPause,
		}, droneengine.NewGomavlibClient(vehicleID), latch, recorders[i], onComplete, onError)
	}

	sup = supervisor.New(engines, recorders, latch, func() {
		status.Store(models.DroneFinish)
		_ = server.Deliver(wireproto.NewStatus("FINISH"))
	}, func(id string, err error) {
		log.Printf("vehicle %s error: %v", id, err)
		status.Store(models.DroneError)
		_ = server.Deliver(wireproto.NewStatus("ERROR"))
	})
	return sup
}

// publishStatus sends the 1Hz status heartbeat until ctx is cancelled.
func publishStatus(ctx context.Context, server *transport.Server, status *atomic.Value) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		s := status.Load().(models.DroneStatus)
		_ = server.Deliver(wireproto.NewStatus(string(s)))
	}
}
