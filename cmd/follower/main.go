// Command follower runs the leader-following controller for one robot: it
// listens for scan and bearing readings over UDP, runs the fuzzy behavior
// controllers at a fixed rate, and publishes blended velocity commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/annagriffin/swarm-cooperative-transport/internal/api"
	"github.com/annagriffin/swarm-cooperative-transport/internal/control"
	"github.com/annagriffin/swarm-cooperative-transport/internal/fuzzy"
	"github.com/annagriffin/swarm-cooperative-transport/internal/monitoring"
	"github.com/annagriffin/swarm-cooperative-transport/internal/serialsrc"
	"github.com/annagriffin/swarm-cooperative-transport/internal/teledb"
	"github.com/annagriffin/swarm-cooperative-transport/internal/transport"
)

var (
	robot          = flag.String("robot", "", "Robot namespace to follow (required)")
	sensorAddr     = flag.String("sensor-listen", ":2370", "UDP address for incoming scan and bearing datagrams")
	commandAddr    = flag.String("command-addr", "127.0.0.1:2371", "UDP address of the robot base command endpoint")
	listen         = flag.String("listen", ":8080", "HTTP listen address for the status API")
	interval       = flag.Duration("interval", control.DefaultInterval, "Control loop period")
	distance       = flag.Float64("distance", control.DefaultDesiredDistance, "Following-distance setpoint in meters")
	leaderWindow   = flag.Int("leader-window", control.DefaultLeaderWindow, "Half-window in degrees for the leader distance estimate")
	obstacleWindow = flag.Int("obstacle-window", control.DefaultObstacleWindow, "Half-window in degrees for the obstacle distance estimates")
	fuzzyConfig    = flag.String("fuzzy-config", "", "Optional JSON file overriding the built-in rule bases")
	dbFile         = flag.String("db", "follower_telemetry.db", "Telemetry database file (empty disables telemetry)")
	serialDevice   = flag.String("serial", "", "Optional serial device for a bearing tracker (replaces the UDP bearing feed)")
	devMode        = flag.Bool("dev", false, "Replay bearing records from fixtures.txt instead of opening a serial device")
	debug          = flag.Bool("debug", false, "Enable debug logging")
)

// openBearingSource opens the bearing tracker: a mock port replaying canned
// records in dev mode, the real serial device otherwise.
func openBearingSource(device string, dev bool, fixtures string, onBearing func(deg float64)) (*serialsrc.BearingSource, error) {
	if dev {
		data, err := os.ReadFile(fixtures)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixtures file: %w", err)
		}
		return serialsrc.NewBearingSource(&serialsrc.MockPort{ReadData: data}, onBearing), nil
	}
	return serialsrc.Open(device, onBearing)
}

func main() {
	flag.Parse()

	if *robot == "" {
		log.Fatal("Robot namespace is required")
	}
	monitoring.SetDebug(*debug)

	set := fuzzy.DefaultControllerSet()
	if *fuzzyConfig != "" {
		var err error
		set, err = fuzzy.LoadControllerSet(*fuzzyConfig)
		if err != nil {
			log.Fatalf("Failed to load fuzzy config: %v", err)
		}
		log.Printf("loaded rule-base overrides from %s", *fuzzyConfig)
	}

	formation, err := control.NewFormation(*set.Formation, *distance, *leaderWindow)
	if err != nil {
		log.Fatalf("Failed to build formation controller: %v", err)
	}
	avoidance, err := control.NewAvoidance(*set.Avoidance)
	if err != nil {
		log.Fatalf("Failed to build avoidance controller: %v", err)
	}
	arbitration, err := control.NewArbitration(*set.Arbitration)
	if err != nil {
		log.Fatalf("Failed to build arbitration controller: %v", err)
	}

	var recorder control.Recorder
	var cycles api.CycleSource
	if *dbFile != "" {
		db, err := teledb.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open telemetry database: %v", err)
		}
		defer db.Close()
		recorder = db
		cycles = db
		log.Printf("telemetry session %s -> %s", db.Session(), *dbFile)
	}

	sensors := control.NewSensorState(*obstacleWindow)
	stats := transport.NewStats()

	var onBearing transport.BearingHandler
	if *serialDevice == "" && !*devMode {
		onBearing = sensors.UpdateBearing
	}
	listener, err := transport.NewListener(transport.ListenerConfig{
		Addr:      *sensorAddr,
		Robot:     *robot,
		OnScan:    sensors.UpdateScan,
		OnBearing: onBearing,
		Stats:     stats,
	})
	if err != nil {
		log.Fatalf("Failed to start sensor listener: %v", err)
	}
	log.Printf("listening for %s sensor data on %s", *robot, listener.LocalAddr())

	publisher, err := transport.NewCommandPublisher(*commandAddr, *robot, stats, 5*time.Second)
	if err != nil {
		log.Fatalf("Failed to dial command endpoint: %v", err)
	}
	defer publisher.Close()

	loop := control.NewLoop(control.LoopConfig{
		Formation:   formation,
		Avoidance:   avoidance,
		Arbitration: arbitration,
		Sensors:     sensors,
		Publisher:   publisher,
		Recorder:    recorder,
		Interval:    *interval,
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The publisher outlives the signal context: its send goroutine stops
	// only after the fusion loop has returned, so the loop's final stop
	// command is still on the wire before the process exits.
	pubCtx, stopPublisher := context.WithCancel(context.Background())
	publisher.Start(pubCtx)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Run(ctx); err != nil {
			log.Printf("sensor listener failed: %v", err)
			stop()
		}
		log.Print("sensor listener stopped")
	}()

	if *serialDevice != "" || *devMode {
		src, err := openBearingSource(*serialDevice, *devMode, "fixtures.txt", sensors.UpdateBearing)
		if err != nil {
			log.Fatalf("Failed to open bearing tracker: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Monitor(ctx); err != nil {
				log.Printf("bearing tracker failed: %v", err)
				stop()
			}
			log.Print("bearing tracker stopped")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stopPublisher()
		if err := loop.Run(ctx); err != nil {
			log.Printf("fusion loop failed: %v", err)
			stop()
		}
		log.Print("fusion loop stopped")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(*robot, loop, cycles, stats).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
