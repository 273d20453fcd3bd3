// Package kml serializes flight sessions as KML trajectories, one
// LineString per session, grouped into one folder per aircraft.
package kml

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"io"
	"sort"
	"time"

	kml "github.com/twpayne/go-kml/v3"

	"github.com/saviobatista/adsb-tracker/internal/types"
)

// Trajectory is one session's plottable observations in time order.
type Trajectory struct {
	HexIdent  string
	SessionID string
	Flight    string
	Points    []*types.Observation
}

// StartedAt returns the session's first observation time
func (t *Trajectory) StartedAt() time.Time {
	return t.Points[0].Timestamp
}

// EndedAt returns the session's last observation time
func (t *Trajectory) EndedAt() time.Time {
	return t.Points[len(t.Points)-1].Timestamp
}

// AircraftGroup collects one aircraft's sessions in start order.
type AircraftGroup struct {
	HexIdent string
	Sessions []*Trajectory
}

// Stats summarizes an export
type Stats struct {
	Aircraft int
	Sessions int
	Points   int
}

// Group partitions time-ordered plottable observations by aircraft
// and session. Aircraft are sorted by identifier; sessions keep
// first-observation order.
func Group(observations []*types.Observation) []*AircraftGroup {
	groups := make(map[string]*AircraftGroup)
	sessions := make(map[string]*Trajectory)

	for _, obs := range observations {
		if !obs.HasPosition() {
			continue
		}

		trajectory, ok := sessions[obs.SessionID]
		if !ok {
			trajectory = &Trajectory{
				HexIdent:  obs.HexIdent,
				SessionID: obs.SessionID,
			}
			sessions[obs.SessionID] = trajectory

			group, ok := groups[obs.HexIdent]
			if !ok {
				group = &AircraftGroup{HexIdent: obs.HexIdent}
				groups[obs.HexIdent] = group
			}
			group.Sessions = append(group.Sessions, trajectory)
		}

		if trajectory.Flight == "" && obs.Flight != nil {
			trajectory.Flight = *obs.Flight
		}
		trajectory.Points = append(trajectory.Points, obs)
	}

	out := make([]*AircraftGroup, 0, len(groups))
	for _, group := range groups {
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].HexIdent < out[j].HexIdent
	})
	return out
}

// Write serializes the groups as a KML document. Sessions with
// fewer than minPoints plottable points are skipped entirely; no
// single-point markers are emitted.
func Write(w io.Writer, groups []*AircraftGroup, minPoints int) (Stats, error) {
	if minPoints < 2 {
		minPoints = 2
	}

	var stats Stats
	children := []kml.Element{kml.Name("ADS-B Aircraft Trajectories")}

	for _, group := range groups {
		folder := buildFolder(group, minPoints, &stats)
		if folder != nil {
			stats.Aircraft++
			children = append(children, folder)
		}
	}

	doc := kml.KML(kml.Document(children...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return stats, fmt.Errorf("failed to write KML: %w", err)
	}
	return stats, nil
}

// buildFolder builds one aircraft's folder, or nil when every
// session is below the point threshold.
func buildFolder(group *AircraftGroup, minPoints int, stats *Stats) kml.Element {
	pathColor := PathColor(group.HexIdent)
	children := []kml.Element{kml.Name(fmt.Sprintf("ICAO: %s", group.HexIdent))}

	emitted := 0
	for _, trajectory := range group.Sessions {
		if len(trajectory.Points) < minPoints {
			continue
		}
		children = append(children, buildPlacemark(trajectory, pathColor))
		emitted++
		stats.Sessions++
		stats.Points += len(trajectory.Points)
	}
	if emitted == 0 {
		return nil
	}
	return kml.Folder(children...)
}

func buildPlacemark(trajectory *Trajectory, pathColor color.Color) kml.Element {
	coords := make([]kml.Coordinate, 0, len(trajectory.Points))
	minAlt, maxAlt := *trajectory.Points[0].AltitudeM, *trajectory.Points[0].AltitudeM
	for _, p := range trajectory.Points {
		alt := *p.AltitudeM
		coords = append(coords, kml.Coordinate{Lon: *p.Lon, Lat: *p.Lat, Alt: alt})
		if alt < minAlt {
			minAlt = alt
		}
		if alt > maxAlt {
			maxAlt = alt
		}
	}

	flight := trajectory.Flight
	if flight == "" {
		flight = "Unknown"
	}
	started := trajectory.StartedAt()
	ended := trajectory.EndedAt()

	description := fmt.Sprintf(
		"<b>Flight:</b> %s<br/>"+
			"<b>ICAO:</b> %s<br/>"+
			"<b>Session ID:</b> %s<br/>"+
			"<b>Start:</b> %s<br/>"+
			"<b>End:</b> %s<br/>"+
			"<b>Duration:</b> %.1f minutes<br/>"+
			"<b>Points:</b> %d<br/>"+
			"<b>Max Altitude:</b> %.0f m<br/>"+
			"<b>Min Altitude:</b> %.0f m",
		flight,
		trajectory.HexIdent,
		trajectory.SessionID,
		started.Format("2006-01-02 15:04:05"),
		ended.Format("2006-01-02 15:04:05"),
		ended.Sub(started).Minutes(),
		len(trajectory.Points),
		maxAlt,
		minAlt,
	)

	return kml.Placemark(
		kml.Name(fmt.Sprintf("%s (%s)", trajectory.HexIdent, started.Format("2006-01-02 15:04"))),
		kml.Description(description),
		kml.Style(
			kml.LineStyle(
				kml.Color(pathColor),
				kml.Width(3),
			),
		),
		kml.LineString(
			kml.Extrude(true),
			kml.AltitudeMode(kml.AltitudeModeAbsolute),
			kml.Coordinates(coords...),
		),
	)
}

// PathColor derives a stable color from an aircraft identifier so a
// given aircraft always renders the same across exports.
func PathColor(hexIdent string) color.Color {
	h := fnv.New32a()
	h.Write([]byte(hexIdent))
	sum := h.Sum32()
	return color.RGBA{
		R: uint8(sum >> 16),
		G: uint8(sum >> 8),
		B: uint8(sum),
		A: 0xFF,
	}
}
