package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/saviobatista/adsb-tracker/internal/config"
	"github.com/saviobatista/adsb-tracker/internal/db"
	"github.com/saviobatista/adsb-tracker/internal/kml"
	"github.com/saviobatista/adsb-tracker/internal/types"
)

// trajectoryStore interface for testability
type trajectoryStore interface {
	Trajectories(filter db.TrajectoryFilter) ([]*types.Observation, error)
}

type options struct {
	output      string
	icao        string
	maxAltitude float64
	minPoints   int
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.output, "output", "trajectories.kml", "Output KML filename")
	fs.StringVar(&opts.icao, "icao", "", "Filter by specific ICAO hex code")
	fs.Float64Var(&opts.maxAltitude, "max-altitude", 0, "Maximum altitude in meters (filter out higher altitudes)")
	fs.IntVar(&opts.minPoints, "min-points", 2, "Minimum points required per trajectory")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// run reads trajectories, groups them by session and writes the KML
// file. It returns export statistics for the summary line.
func run(store trajectoryStore, opts *options) (kml.Stats, error) {
	filter := db.TrajectoryFilter{
		HexIdent: strings.ToUpper(strings.TrimSpace(opts.icao)),
	}
	if opts.maxAltitude > 0 {
		filter.MaxAltitudeM = &opts.maxAltitude
	}

	observations, err := store.Trajectories(filter)
	if err != nil {
		return kml.Stats{}, fmt.Errorf("failed to read observations: %w", err)
	}

	groups := kml.Group(observations)
	if len(groups) == 0 {
		return kml.Stats{}, fmt.Errorf("no trajectories found")
	}

	file, err := os.Create(opts.output)
	if err != nil {
		return kml.Stats{}, fmt.Errorf("failed to create output file: %w", err)
	}

	stats, err := kml.Write(file, groups, opts.minPoints)
	if err != nil {
		file.Close()
		return stats, err
	}
	if err := file.Close(); err != nil {
		return stats, fmt.Errorf("failed to write output file: %w", err)
	}
	return stats, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	dbClient, err := db.New(cfg.DBConnStr)
	if err != nil {
		log.Printf("Failed to create database client: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing dbClient: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = dbClient.Ping(ctx)
	cancel()
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	stats, err := run(dbClient, opts)
	if err != nil {
		log.Printf("Export failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d aircraft, %d sessions, %d points to %s\n",
		stats.Aircraft, stats.Sessions, stats.Points, opts.output)
}
