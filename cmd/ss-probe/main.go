package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"SampleSync/internal/config"
	"SampleSync/internal/feed"
	"SampleSync/pkg/replay"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/nats-io/nats.go"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = pcap.BlockForever
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "gen", "Operating mode: 'gen' (synthetic samples), 'pcap' (capture frame sizes), 'replay' (re-publish a journal), 'watch' (print emitted batches).")
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	sources := flag.String("sources", "sensor-1,sensor-2", "Comma-separated source identifiers (gen mode).")
	rate := flag.Float64("rate", 10, "Samples per second per source (gen mode).")
	iface := flag.String("iface", "", "Interface to capture from (required for pcap mode).")
	file := flag.String("file", "", "Journal file to replay (required for replay mode).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "gen":
		runGenerator(cfg, strings.Split(*sources, ","), *rate)
	case "pcap":
		runCapture(cfg, *iface)
	case "replay":
		runReplay(cfg, *file)
	case "watch":
		runWatcher(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// newPublisher connects the sample publisher and optional journal.
func newPublisher(cfg *config.Config) (*feed.Publisher, *feed.Journal) {
	pub, err := feed.NewPublisher(cfg.NATS.URL, cfg.NATS.SampleSubject, cfg.NATS.BatchSubject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	var journal *feed.Journal
	if cfg.Probe.Journal.Enabled {
		journal, err = feed.NewJournal(cfg.Probe.Journal)
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
	}
	return pub, journal
}

// runGenerator publishes synthetic sine-wave readings for the named sources.
func runGenerator(cfg *config.Config, sources []string, rate float64) {
	if rate <= 0 {
		log.Fatalf("Rate must be positive, got %f", rate)
	}
	log.Printf("Starting ss-probe in GEN mode for sources %v at %.1f samples/s.", sources, rate)

	pub, journal := newPublisher(cfg)
	defer pub.Close()
	if journal != nil {
		defer journal.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	start := time.Now()
	published := 0
	for {
		select {
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			for i, source := range sources {
				// Each source gets its own phase so the waves are distinguishable.
				value := 10*math.Sin(elapsed/5+float64(i)) + rand.Float64()
				env := &feed.SampleEnvelope{SourceID: source, Value: value}
				if err := pub.PublishSample(env); err != nil {
					log.Printf("Error publishing sample: %v", err)
					continue
				}
				if journal != nil {
					journal.Record(env)
				}
				published++
			}
		case <-sigChan:
			log.Printf("Generator stopped after publishing %d samples.", published)
			return
		}
	}
}

// runCapture publishes one sample per captured frame: the source is the
// interface name and the value is the frame length in bytes.
func runCapture(cfg *config.Config, interfaceName string) {
	if interfaceName == "" {
		log.Println("Error: -iface flag is required for pcap mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting ss-probe in PCAP mode on interface: %s", interfaceName)

	handle, err := pcap.OpenLive(interfaceName, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Failed to open interface %s: %v", interfaceName, err)
	}
	defer handle.Close()

	pub, journal := newPublisher(cfg)
	defer pub.Close()
	if journal != nil {
		defer journal.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packets := packetSource.Packets()
	captured := 0
	for {
		select {
		case packet, ok := <-packets:
			if !ok {
				log.Printf("Capture ended after %d frames.", captured)
				return
			}
			env := &feed.SampleEnvelope{
				SourceID: interfaceName,
				Value:    float64(len(packet.Data())),
			}
			if err := pub.PublishSample(env); err != nil {
				log.Printf("Error publishing sample: %v", err)
				continue
			}
			if journal != nil {
				journal.Record(env)
			}
			captured++
		case <-sigChan:
			log.Printf("Capture stopped after %d frames.", captured)
			return
		}
	}
}

// runReplay re-publishes a previously journaled capture session.
func runReplay(cfg *config.Config, filePath string) {
	if filePath == "" {
		log.Println("Error: -file flag is required for replay mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting ss-probe in REPLAY mode from %s.", filePath)

	reader, err := replay.NewReader(filePath)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer reader.Close()

	pub, _ := newPublisher(cfg)
	defer pub.Close()

	out := make(chan *feed.SampleEnvelope, 100)
	go reader.ReadSamples(out)

	replayed := 0
	for env := range out {
		if err := pub.PublishSample(env); err != nil {
			log.Printf("Error publishing sample: %v", err)
			continue
		}
		replayed++
	}
	log.Printf("Replayed %d samples.", replayed)
}

// runWatcher subscribes to the batch subject and prints every emitted batch.
func runWatcher(cfg *config.Config) {
	log.Printf("Starting ss-probe in WATCH mode on subject '%s'.", cfg.NATS.BatchSubject)

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(cfg.NATS.BatchSubject, func(msg *nats.Msg) {
		fmt.Printf("--- batch @ %s ---\n%s\n", time.Now().Format(time.RFC3339), msg.Data)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Watcher stopped.")
}
