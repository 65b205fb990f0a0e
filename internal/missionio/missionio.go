// Package missionio reads primary-mission and batch-flight documents into
// core missions. Documents are JSON, or YAML when the file extension says so.
package missionio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/drone-deconfliction/core"
	"github.com/signalsfoundry/drone-deconfliction/model"
	"gopkg.in/yaml.v3"
)

// PrimaryID is assigned to a primary mission document without an id.
const PrimaryID = "primary"

// ErrMalformedDocument wraps structural problems in an input document.
var ErrMalformedDocument = errors.New("malformed mission document")

// Format is the encoding of a mission document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks the document format from the file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// flightNamespace scopes the name-based UUIDs given to unnamed flights.
var flightNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("drone-deconfliction/flight"))

// missionDoc is the on-disk shape of one mission.
type missionDoc struct {
	ID           string      `json:"id,omitempty" yaml:"id,omitempty"`
	Waypoints    [][]float64 `json:"waypoints" yaml:"waypoints"`
	StartTime    string      `json:"start_time" yaml:"start_time"`
	EndTime      string      `json:"end_time" yaml:"end_time"`
	CruiseSpeed  float64     `json:"cruise_speed,omitempty" yaml:"cruise_speed,omitempty"`
	Acceleration float64     `json:"acceleration,omitempty" yaml:"acceleration,omitempty"`
	Deceleration float64     `json:"deceleration,omitempty" yaml:"deceleration,omitempty"`
}

type batchDoc struct {
	Flights []missionDoc `json:"flights" yaml:"flights"`
}

// LoadPrimary reads the primary mission document at path.
func LoadPrimary(path string) (*core.Mission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open primary mission: %w", err)
	}
	defer f.Close()

	m, err := DecodePrimary(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadFlights reads the batch document of other flights at path.
func LoadFlights(path string) ([]*core.Mission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flights: %w", err)
	}
	defer f.Close()

	ms, err := DecodeFlights(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}

// DecodePrimary decodes a single mission document. A missing id becomes
// PrimaryID.
func DecodePrimary(r io.Reader, format Format) (*core.Mission, error) {
	var doc missionDoc
	if err := decode(r, format, &doc); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = PrimaryID
	}
	return doc.mission()
}

// DecodeFlights decodes a {flights: [...]} document. Flights without an id
// get a UUIDv5 derived from their position in the batch and their content,
// so repeated runs over the same file agree on identities.
func DecodeFlights(r io.Reader, format Format) ([]*core.Mission, error) {
	var doc batchDoc
	if err := decode(r, format, &doc); err != nil {
		return nil, err
	}
	if doc.Flights == nil {
		return nil, fmt.Errorf("%w: missing flights list", ErrMalformedDocument)
	}

	missions := make([]*core.Mission, 0, len(doc.Flights))
	for i, fd := range doc.Flights {
		if fd.ID == "" {
			fd.ID = FlightID(i, fd.StartTime, fd.EndTime, fd.Waypoints)
		}
		m, err := fd.mission()
		if err != nil {
			return nil, fmt.Errorf("flight %d: %w", i, err)
		}
		missions = append(missions, m)
	}
	return missions, nil
}

// FlightID derives the identity of an unnamed flight.
func FlightID(index int, start, end string, waypoints [][]float64) string {
	name := fmt.Sprintf("%d|%s|%s|%v", index, start, end, waypoints)
	return uuid.NewSHA1(flightNamespace, []byte(name)).String()
}

func decode(r io.Reader, format Format, v any) error {
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(v)
	default:
		err = json.NewDecoder(r).Decode(v)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}

func (d missionDoc) mission() (*core.Mission, error) {
	start, err := ParseTime(d.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start_time: %v", ErrMalformedDocument, err)
	}
	end, err := ParseTime(d.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: end_time: %v", ErrMalformedDocument, err)
	}

	route := make([]model.Waypoint, len(d.Waypoints))
	for i, p := range d.Waypoints {
		if len(p) != 3 {
			return nil, fmt.Errorf("%w: waypoint %d has %d coordinates, want 3", ErrMalformedDocument, i, len(p))
		}
		route[i] = model.NewWaypoint(p[0], p[1], p[2])
	}

	return core.NewMission(d.ID, route, start, end, core.WithKinematics(model.Kinematics{
		CruiseSpeed:  d.CruiseSpeed,
		Acceleration: d.Acceleration,
		Deceleration: d.Deceleration,
	}))
}

// naiveLayouts are ISO-8601 forms without a zone offset; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 or a naive ISO-8601 timestamp (taken as UTC).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
