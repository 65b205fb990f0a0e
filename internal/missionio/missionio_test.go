package missionio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/drone-deconfliction/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const primaryJSON = `{
  "waypoints": [[0, 0, 0], [100, 0, 0], [100, 50, 10]],
  "start_time": "2024-01-01T10:00:00",
  "end_time": "2024-01-01T10:10:00"
}`

const flightsJSON = `{
  "flights": [
    {
      "waypoints": [[50, -5, 0], [50, 5, 0]],
      "start_time": "2024-01-01T10:05:00",
      "end_time": "2024-01-01T10:06:00"
    },
    {
      "id": "survey-7",
      "waypoints": [[0, 100, 0], [100, 100, 0]],
      "start_time": "2024-01-01T10:00:00Z",
      "end_time": "2024-01-01T10:10:00Z",
      "cruise_speed": 3.5,
      "acceleration": 1.5
    }
  ]
}`

func TestDecodePrimaryDefaultsIDAndParsesNaiveTimesAsUTC(t *testing.T) {
	m, err := DecodePrimary(strings.NewReader(primaryJSON), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, PrimaryID, m.ID)
	require.Len(t, m.Waypoints, 3)
	assert.Equal(t, 10.0, m.Waypoints[2].Z)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), m.StartTime)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC), m.EndTime)
	assert.False(t, m.Generated())
}

func TestDecodeFlightsAssignsStableIDs(t *testing.T) {
	first, err := DecodeFlights(strings.NewReader(flightsJSON), FormatJSON)
	require.NoError(t, err)
	second, err := DecodeFlights(strings.NewReader(flightsJSON), FormatJSON)
	require.NoError(t, err)

	require.Len(t, first, 2)
	_, err = uuid.Parse(first[0].ID)
	require.NoError(t, err, "unnamed flight should get a UUID")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "survey-7", first[1].ID)

	assert.Equal(t, 3.5, first[1].Kinematics.CruiseSpeed)
	assert.Equal(t, 1.5, first[1].Kinematics.Acceleration)
	assert.Zero(t, first[1].Kinematics.Deceleration)
}

func TestFlightIDDependsOnIndexAndContent(t *testing.T) {
	wps := [][]float64{{0, 0, 0}, {1, 1, 1}}
	a := FlightID(0, "2024-01-01T10:00:00", "2024-01-01T10:01:00", wps)
	b := FlightID(1, "2024-01-01T10:00:00", "2024-01-01T10:01:00", wps)
	c := FlightID(0, "2024-01-01T10:00:00", "2024-01-01T10:02:00", wps)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, FlightID(0, "2024-01-01T10:00:00", "2024-01-01T10:01:00", wps))
}

func TestDecodeYAML(t *testing.T) {
	doc := `
flights:
  - id: ridge
    waypoints:
      - [0, 0, 0]
      - [0, 0, 120]
    start_time: "2024-01-01T10:00:00+02:00"
    end_time: "2024-01-01T10:10:00+02:00"
`
	ms, err := DecodeFlights(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "ridge", ms[0].ID)
	assert.Equal(t, 10*time.Minute, ms[0].EndTime.Sub(ms[0].StartTime))
	assert.True(t, ms[0].StartTime.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)))
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `{"waypoints": [`, ErrMalformedDocument},
		{"bad time", `{"waypoints": [[0,0,0],[1,0,0]], "start_time": "noon", "end_time": "2024-01-01T10:00:00"}`, ErrMalformedDocument},
		{"two coordinates", `{"waypoints": [[0,0],[1,0,0]], "start_time": "2024-01-01T09:00:00", "end_time": "2024-01-01T10:00:00"}`, ErrMalformedDocument},
		{"one waypoint", `{"waypoints": [[0,0,0]], "start_time": "2024-01-01T09:00:00", "end_time": "2024-01-01T10:00:00"}`, core.ErrInvalidMission},
		{"inverted window", `{"waypoints": [[0,0,0],[1,0,0]], "start_time": "2024-01-01T10:00:00", "end_time": "2024-01-01T09:00:00"}`, core.ErrInvalidMission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePrimary(strings.NewReader(tt.doc), FormatJSON)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeFlightsRequiresFlightsKey(t *testing.T) {
	_, err := DecodeFlights(strings.NewReader(`{"missions": []}`), FormatJSON)
	require.ErrorIs(t, err, ErrMalformedDocument)
}

func TestDecodeFlightsReportsIndex(t *testing.T) {
	doc := `{"flights": [{"waypoints": [[0,0,0]], "start_time": "2024-01-01T09:00:00", "end_time": "2024-01-01T10:00:00"}]}`
	_, err := DecodeFlights(strings.NewReader(doc), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flight 0")
}

func TestLoadFromDiskPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "primary.json")
	yamlPath := filepath.Join(dir, "flights.yml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(primaryJSON), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("flights:\n  - waypoints: [[0,0,0],[5,5,5]]\n    start_time: \"2024-01-01T10:00:00\"\n    end_time: \"2024-01-01T10:01:00\"\n"), 0o644))

	primary, err := LoadPrimary(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, PrimaryID, primary.ID)

	flights, err := LoadFlights(yamlPath)
	require.NoError(t, err)
	require.Len(t, flights, 1)

	_, err = LoadPrimary(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 30, 15, 500_000_000, time.UTC)
	for _, in := range []string{
		"2024-03-09T14:30:15.5",
		"2024-03-09T14:30:15.5Z",
		"2024-03-09 14:30:15.5",
		"2024-03-09T16:30:15.5+02:00",
	} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), "%s parsed as %s", in, got)
	}

	_, err := ParseTime("")
	require.Error(t, err)
}
