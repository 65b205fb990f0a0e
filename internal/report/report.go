// Package report serialises detector output for downstream tooling and
// renders the human-readable run summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/signalsfoundry/drone-deconfliction/model"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the report wire format.
type Encoding string

const (
	JSON    Encoding = "json"
	Msgpack Encoding = "msgpack"
)

const zstdSuffix = ".zst"

// Report is the serialised result of one detection run. Times are RFC 3339
// strings with nanosecond precision.
type Report struct {
	PrimaryMissionID string           `json:"primary_mission_id" msgpack:"primary_mission_id"`
	SafetyBuffer     float64          `json:"safety_buffer" msgpack:"safety_buffer"`
	ConflictCount    int              `json:"conflict_count" msgpack:"conflict_count"`
	Conflicts        []ConflictRecord `json:"conflicts" msgpack:"conflicts"`
	Events           []EventRecord    `json:"events" msgpack:"events"`
}

// ConflictRecord is one conflict as written to disk.
type ConflictRecord struct {
	Time           string     `json:"time" msgpack:"time"`
	Location       [3]float64 `json:"location" msgpack:"location"`
	Distance       float64    `json:"distance" msgpack:"distance"`
	OtherMissionID string     `json:"other_mission_id" msgpack:"other_mission_id"`
}

// EventRecord is one merged encounter as written to disk.
type EventRecord struct {
	OtherMissionID  string     `json:"other_mission_id" msgpack:"other_mission_id"`
	StartTime       string     `json:"start_time" msgpack:"start_time"`
	EndTime         string     `json:"end_time" msgpack:"end_time"`
	ClosestTime     string     `json:"closest_time" msgpack:"closest_time"`
	ClosestLocation [3]float64 `json:"closest_location" msgpack:"closest_location"`
	MinDistance     float64    `json:"min_distance" msgpack:"min_distance"`
	Records         int        `json:"records" msgpack:"records"`
}

// New assembles a report. Conflicts keep the detector's order.
func New(primaryID string, safetyBuffer float64, conflicts []model.Conflict, events []model.ConflictEvent) Report {
	r := Report{
		PrimaryMissionID: primaryID,
		SafetyBuffer:     safetyBuffer,
		ConflictCount:    len(conflicts),
		Conflicts:        make([]ConflictRecord, 0, len(conflicts)),
		Events:           make([]EventRecord, 0, len(events)),
	}
	for _, c := range conflicts {
		r.Conflicts = append(r.Conflicts, ConflictRecord{
			Time:           formatTime(c.Time),
			Location:       c.Location,
			Distance:       c.Distance,
			OtherMissionID: c.OtherMissionID,
		})
	}
	for _, e := range events {
		r.Events = append(r.Events, EventRecord{
			OtherMissionID:  e.OtherMissionID,
			StartTime:       formatTime(e.StartTime),
			EndTime:         formatTime(e.EndTime),
			ClosestTime:     formatTime(e.ClosestTime),
			ClosestLocation: e.ClosestLocation,
			MinDistance:     e.MinDistance,
			Records:         e.Records,
		})
	}
	return r
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// EncodingForPath infers the encoding from the file name, ignoring a
// trailing .zst.
func EncodingForPath(path string) Encoding {
	base := strings.TrimSuffix(strings.ToLower(path), zstdSuffix)
	switch filepath.Ext(base) {
	case ".msgpack", ".mpk":
		return Msgpack
	default:
		return JSON
	}
}

// Compressed reports whether path names a zstd-compressed report.
func Compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), zstdSuffix)
}

// ParseEncoding validates a user-supplied encoding name; "" means infer.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case string(JSON):
		return JSON, nil
	case string(Msgpack):
		return Msgpack, nil
	default:
		return "", fmt.Errorf("unsupported report encoding %q", s)
	}
}

// Encode writes r to w, zstd-compressed when compress is set.
func Encode(w io.Writer, r Report, enc Encoding, compress bool) error {
	if !compress {
		return encodePlain(w, r, enc)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := encodePlain(zw, r, enc); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

func encodePlain(w io.Writer, r Report, enc Encoding) error {
	switch enc {
	case Msgpack:
		if err := msgpack.NewEncoder(w).Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	default:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		if err := e.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	}
	return nil
}

// Decode reads a report written by Encode.
func Decode(rd io.Reader, enc Encoding, compressed bool) (Report, error) {
	if compressed {
		zr, err := zstd.NewReader(rd)
		if err != nil {
			return Report{}, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		rd = zr
	}

	var r Report
	var err error
	switch enc {
	case Msgpack:
		err = msgpack.NewDecoder(rd).Decode(&r)
	default:
		err = json.NewDecoder(rd).Decode(&r)
	}
	if err != nil {
		return Report{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return r, nil
}

// WriteFile writes r to path. An empty enc is inferred from the path; a
// .zst suffix adds compression.
func WriteFile(path string, r Report, enc Encoding) error {
	if enc == "" {
		enc = EncodingForPath(path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, r, enc, Compressed(path)); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads a report written by WriteFile with an inferred encoding.
func ReadFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()

	r, err := Decode(f, EncodingForPath(path), Compressed(path))
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// WriteSummary prints the run outcome and the first limit conflicts.
// A non-positive limit prints every conflict.
func WriteSummary(w io.Writer, r Report, limit int) error {
	if r.ConflictCount == 0 {
		_, err := fmt.Fprintln(w, "No conflicts detected. Mission is safe to proceed.")
		return err
	}

	if _, err := fmt.Fprintf(w, "Conflict detected! Found %d potential conflicts with %d encounter(s).\n",
		r.ConflictCount, len(r.Events)); err != nil {
		return err
	}
	shown := r.Conflicts
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for i, c := range shown {
		clock := c.Time
		if t, err := time.Parse(time.RFC3339Nano, c.Time); err == nil {
			clock = t.Format("15:04:05")
		}
		if _, err := fmt.Fprintf(w, "\nConflict %d:\n  Time: %s\n  Location: (X: %.1fm, Y: %.1fm, Z: %.1fm)\n  Distance: %.2fm\n  With: %s\n",
			i+1, clock, c.Location[0], c.Location[1], c.Location[2], c.Distance, c.OtherMissionID); err != nil {
			return err
		}
	}
	if hidden := len(r.Conflicts) - len(shown); hidden > 0 {
		if _, err := fmt.Fprintf(w, "\n... %d more conflict(s) in the full report\n", hidden); err != nil {
			return err
		}
	}
	return nil
}
