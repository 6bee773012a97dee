// Command missionctl is the Client module: it submits one mission
// description to a running PLD and prints its status stream until the
// mission reaches a terminal state.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivgtz/idrone-platform/internal/config"
	"github.com/ivgtz/idrone-platform/internal/models"
	"github.com/ivgtz/idrone-platform/internal/transport"
	"github.com/ivgtz/idrone-platform/internal/wireproto"
)

const version = "0.3.1-dev"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	fmt.Printf("idrone-platform missionctl v%s\n", version)
	fmt.Println()

	fs := flag.NewFlagSet("missionctl", flag.ExitOnError)
	missionPath := fs.String("mission", "", "path to a JSON file matching the config_mission wire payload")
	endpoints, err := config.ParseFlags(fs, os.Args[1:], false)
	if err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	if *missionPath == "" {
		log.Fatal("missing required flag: --mission")
	}

	data, err := os.ReadFile(*missionPath)
	if err != nil {
		log.Fatalf("reading mission file %s: %v", *missionPath, err)
	}
	var missionCfg wireproto.ConfigMissionPayload
	if err := json.Unmarshal(data, &missionCfg); err != nil {
		log.Fatalf("parsing mission file %s: %v", *missionPath, err)
	}

	pldEndpoint := fmt.Sprintf("%s:%d", endpoints.PLDAddress, endpoints.PLDPort)

	doneCh := make(chan models.PLDStatus, 1)

	client := transport.New(transport.Handlers{
		OnConnect: func() {
			log.Printf("connected to PLD at %s", pldEndpoint)
		},
		OnMessage: func(msg *wireproto.Message) {
			if msg.Tag != wireproto.TagStatus {
				return
			}
			status := models.PLDStatus(msg.Status.TypeStatus)
			log.Printf("PLD status: %s", status)
			if status.Terminal() {
				select {
				case doneCh <- status:
				default:
				}
			}
		},
		OnError: func(kind transport.ErrorKind, err error) {
			log.Printf("transport error (%s): %v", kind, err)
		},
	})

	if err := client.Connect(pldEndpoint); err != nil {
		log.Fatalf("connecting to PLD at %s: %v", pldEndpoint, err)
	}
	defer client.Close()

	submission := &wireproto.Message{Tag: wireproto.TagConfigMission, ConfigMission: &missionCfg}
	if err := client.Deliver(submission); err != nil {
		log.Fatalf("submitting mission: %v", err)
	}
	log.Printf("mission submitted for %d vehicle(s)", missionCfg.DroneData.NumDrones)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case status := <-doneCh:
		log.Printf("mission reached terminal status %s", status)
	case <-sigChan:
		log.Println("interrupted, requesting PLD shutdown")
		_ = client.Deliver(wireproto.NewCommand("FINISH"))
	}
}
