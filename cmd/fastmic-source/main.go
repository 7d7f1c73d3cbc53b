// ABOUTME: Entry point for the development microphone source
// ABOUTME: Streams a tone or silence as raw PCM over TCP and advertises it with mDNS
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastmic/fastmic-go/internal/discovery"
	"github.com/fastmic/fastmic-go/internal/source"
	"github.com/fastmic/fastmic-go/internal/version"
)

var (
	port    = flag.Int("port", source.DefaultPort, "TCP listen port")
	mode    = flag.String("mode", string(source.ModeTone), "What to stream: tone or silence")
	rate    = flag.Int("rate", source.DefaultSampleRate, "Sample rate used for pacing")
	name    = flag.String("name", "", "Source friendly name (default: hostname-fastmic-source)")
	logFile = flag.String("log-file", "fastmic-source.log", "Log file path")
	noMDNS  = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	// Set up logging (both file and console)
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	multiWriter := io.MultiWriter(os.Stdout, f)
	log.SetOutput(multiWriter)

	m, err := source.ParseMode(*mode)
	if err != nil {
		log.Fatalf("Invalid mode: %v", err)
	}

	// Determine source name
	sourceName := *name
	if sourceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		sourceName = fmt.Sprintf("%s-fastmic-source", hostname)
	}

	log.Printf("Starting %s source: %s on port %d", version.String(), sourceName, *port)
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	srv := source.New(source.Config{
		Addr:       fmt.Sprintf(":%d", *port),
		Mode:       m,
		SampleRate: *rate,
	})
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	if !*noMDNS {
		mdnsManager := discovery.NewManager(discovery.Config{
			ServiceName: sourceName,
			Port:        *port,
		})
		if err := mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
		defer mdnsManager.Stop()
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("Received %v signal, shutting down gracefully...", sig)
	srv.Stop()

	log.Printf("Source stopped")
}
