// ABOUTME: Entry point for the network microphone player
// ABOUTME: Parses CLI flags, loads settings and runs the worker with the TUI or headless logging
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fastmic/fastmic-go/internal/config"
	"github.com/fastmic/fastmic-go/internal/discovery"
	"github.com/fastmic/fastmic-go/internal/observe"
	"github.com/fastmic/fastmic-go/internal/ui"
	"github.com/fastmic/fastmic-go/internal/version"
	"github.com/fastmic/fastmic-go/internal/worker"
	"github.com/fastmic/fastmic-go/pkg/control"
	"golang.org/x/sync/errgroup"
)

var (
	address     = flag.String("address", "", "Source address as ip:port (overrides the settings file)")
	device      = flag.String("device", "", "Output device name prefix (overrides the settings file)")
	backend     = flag.String("backend", "", "Audio backend: malgo or oto (overrides the settings file)")
	bufferSize  = flag.Int("buffer", 0, "Sample buffer capacity in samples (overrides the settings file)")
	configPath  = flag.String("config", config.DefaultFile, "Settings file path")
	logFile     = flag.String("log-file", "fastmic.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, connect immediately and stream logs instead")
	discover    = flag.Bool("discover", false, "Find a source with mDNS when no address is set")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		multiWriter := io.MultiWriter(os.Stdout, f)
		log.SetOutput(multiWriter)
	}

	log.Printf("Starting %s", version.String())

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    version.Product,
			ServiceVersion: version.Version,
		})
		if err != nil {
			log.Fatalf("Failed to initialise metrics: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("Error shutting down metrics: %v", err)
			}
		}()
	}

	if *discover && cfg.Address == "" {
		cfg.Address = discoverSource(ctx)
	}

	uiEp, workerEp := control.NewPair()
	workerConfig := worker.Config{
		BufferCapacity: cfg.BufferCapacity,
		OpenAudio:      worker.OpenOutput(cfg.Output()),
		Metrics:        observe.DefaultMetrics(),
	}

	g, gctx := errgroup.WithContext(ctx)

	if *metricsAddr != "" {
		serveMetrics(gctx, g, *metricsAddr)
	}

	g.Go(func() error {
		// Ends the metrics server once the UI is done
		defer stop()

		var last string
		var err error
		if useTUI {
			last, err = runTUI(gctx, uiEp, workerEp, workerConfig, cfg.Address)
		} else {
			last, err = runHeadless(gctx, uiEp, workerEp, workerConfig, cfg.Address)
		}
		if last != "" {
			cfg.Address = last
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("Player error: %v", err)
	}

	if err := cfg.Save(*configPath); err != nil {
		log.Printf("Error saving settings: %v", err)
	}

	log.Printf("Player stopped")
}

// loadConfig reads the settings file and applies any flags that were set
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "address":
			cfg.Address = *address
		case "device":
			cfg.DeviceName = *device
		case "backend":
			cfg.Backend = *backend
		case "buffer":
			cfg.BufferCapacity = *bufferSize
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// discoverSource waits up to 10 seconds for an mDNS answer
func discoverSource(ctx context.Context) string {
	log.Printf("Starting source discovery...")

	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	server, err := disc.Discover(ctx)
	if err != nil {
		log.Printf("Discovery failed: %v", err)
		return ""
	}

	log.Printf("Discovered source %s at %s", server.Name, server.Address())
	return server.Address()
}

// serveMetrics runs the Prometheus scrape endpoint until ctx ends
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Printf("Metrics listening on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runTUI drives the worker from the bubbletea program and returns the last address entered
func runTUI(ctx context.Context, uiEp *control.UIEndpoint, workerEp *control.WorkerEndpoint, workerConfig worker.Config, address string) (string, error) {
	prog, err := ui.Run(uiEp, address)
	if err != nil {
		return "", fmt.Errorf("failed to start TUI: %w", err)
	}

	workerConfig.Notify = ui.Notifier(prog)
	done := worker.Start(workerEp, workerConfig)

	go func() {
		select {
		case <-ctx.Done():
			prog.Quit()
		case <-done:
		}
	}()

	final, runErr := prog.Run()

	// Exit may already have been sent by the quit key; a second one is never read
	_ = uiEp.Send(control.Exit{})
	log.Printf("Waiting for worker to finish")
	<-done
	uiEp.Close()

	if m, ok := final.(ui.Model); ok {
		address = m.Address()
	}
	if runErr != nil {
		return address, fmt.Errorf("TUI error: %w", runErr)
	}
	return address, nil
}

// runHeadless connects immediately and logs every worker event until interrupted
func runHeadless(ctx context.Context, uiEp *control.UIEndpoint, workerEp *control.WorkerEndpoint, workerConfig worker.Config, address string) (string, error) {
	if address == "" {
		return "", errors.New("no address: pass -address or -discover")
	}

	done := worker.Start(workerEp, workerConfig)

	if err := uiEp.Send(control.Connect{Address: address}); err != nil {
		return address, fmt.Errorf("cannot send connect: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			log.Printf("Shutdown signal received")
			_ = uiEp.Send(control.Exit{})
		case <-done:
		}
	}()

	for {
		ev, err := uiEp.Receive()
		if err != nil {
			break
		}
		log.Printf("Status: %s", ev)
	}

	<-done
	uiEp.Close()
	return address, nil
}
