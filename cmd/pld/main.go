package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivgtz/idrone-platform/internal/config"
	"github.com/ivgtz/idrone-platform/internal/dashboard"
	"github.com/ivgtz/idrone-platform/internal/platformlog"
	"github.com/ivgtz/idrone-platform/internal/pldstate"
)

const version = "0.3.1-dev"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	fmt.Printf("idrone-platform PLD v%s\n", version)
	fmt.Println("Mission orchestrator: Off -> Planner -> DroneMission -> Off")
	fmt.Println()

	fs := flag.NewFlagSet("pld", flag.ExitOnError)
	endpoints, err := config.ParseFlags(fs, os.Args[1:], true)
	if err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(endpoints.ConfigPath)
	if err != nil {
		log.Fatalf("loading config from %s: %v", endpoints.ConfigPath, err)
	}

	logBuffer := platformlog.New(cfg.Server.RingBufferSize)
	fileSink, err := platformlog.NewFileSink(cfg.Server.LogDir, "pld", time.Now())
	if err != nil {
		log.Fatalf("opening log file sink: %v", err)
	}
	defer fileSink.Close()
	platformlog.Setup(logBuffer, fileSink)

	log.Printf("configuration loaded from %s", endpoints.ConfigPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientEndpoint := fmt.Sprintf("%s:%d", endpoints.OwnAddress, endpoints.OwnPort)
	machine := pldstate.New(pldstate.Config{
		ClientEndpoint: clientEndpoint,
		RecorderDir:    cfg.Recorder.BaseDir,
	})
	log.Printf("listening for a client on %s", clientEndpoint)

	var dash *dashboard.Server
	if cfg.Dashboard.Enabled {
		dash = dashboard.New(cfg.Dashboard, logBuffer)
		if err := dash.Start(); err != nil {
			log.Fatalf("starting dashboard: %v", err)
		}
		go publishDashboardStatus(ctx, machine, dash)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- machine.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("PLD is running. Press Ctrl+C to stop.")

	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down", sig)
		machine.Shutdown()
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil {
			log.Fatalf("PLD exited: %v", err)
		}
	}

	if dash != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := dash.Stop(shutdownCtx); err != nil {
			log.Printf("stopping dashboard: %v", err)
		}
	}

	log.Println("shutdown complete")
}

// publishDashboardStatus polls the state machine's published status at 1Hz
// and forwards it to every connected dashboard client.
func publishDashboardStatus(ctx context.Context, machine *pldstate.Machine, dash *dashboard.Server) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		dash.Publish(dashboard.StatusSnapshot{
			PLD:       string(machine.Status()),
			UpdatedAt: time.Now().UnixMilli(),
		})
	}
}
