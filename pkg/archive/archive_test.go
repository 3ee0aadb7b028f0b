package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racesim-core-go/pkg/utils"
)

const archiveFixture = `{
  "schemaVersion": "1.2.0",
  "sessionId": "monza-2024-r",
  "venueId": "monza",
  "entities": {
    "1":  {"code": "VER", "name": "Verstappen", "team": "Red Bull", "color": "0600EF"},
    "16": {"code": "LEC", "name": "Leclerc", "team": "Ferrari", "color": "#DC0000"}
  },
  "laps": [
    {"entityId": "1",  "lapNumber": 1, "lapDuration": 92.1, "isValid": true,  "pitFlag": false},
    {"entityId": "1",  "lapNumber": 2, "lapDuration": 91.8, "isValid": true,  "pitFlag": true},
    {"entityId": "16", "lapNumber": 1, "lapDuration": 92.4, "isValid": false, "pitFlag": false}
  ],
  "telemetry": {
    "1": [
      {"x": 10.0, "y": -4.0, "speed": 312.0, "lapNumber": 1},
      {"x": 11.5, "y": -3.5, "speed": 310.2, "lapNumber": 1}
    ],
    "16": [
      {"x": 9.0, "y": -5.0, "speed": 308.0, "lapNumber": 1}
    ]
  },
  "outline": [
    {"x": 0, "y": 0}, {"x": 100, "y": 0}, {"x": 100, "y": 50}
  ]
}`

func TestLoader_Parse(t *testing.T) {
	got, err := NewLoader().Parse(archiveFixture)
	assert.NoError(t, err)
	assert.Equal(t, "1.2.0", got.SchemaVersion)
	assert.Equal(t, "monza-2024-r", got.SessionID)
	assert.Equal(t, "monza", got.VenueID)
	assert.Equal(t, utils.Fingerprint([]byte(archiveFixture)), got.Fingerprint)

	assert.Len(t, got.Laps, 3)
	assert.Equal(t, "1", got.Laps[0].EntityID)
	assert.InDelta(t, 92.1, got.Laps[0].LapDuration, 1e-9)
	assert.True(t, got.Laps[1].PitFlag)
	assert.False(t, got.Laps[2].IsValid)

	assert.Len(t, got.Telemetry["1"], 2)
	assert.Len(t, got.Telemetry["16"], 1)
	assert.Equal(t, "1", got.Telemetry["1"][0].EntityID)
	assert.Equal(t, 1, got.Telemetry["1"][1].Idx)
	assert.InDelta(t, 310.2, got.Telemetry["1"][1].Speed, 1e-9)

	assert.Equal(t, "#0600EF", got.Entities["1"].Color)
	assert.Equal(t, "#DC0000", got.Entities["16"].Color)
	assert.Equal(t, "16", got.Entities["16"].ID)

	assert.NotNil(t, got.Outline)
	assert.Equal(t, "monza", got.Outline.VenueID)
	assert.Len(t, got.Outline.Points, 3)
	assert.InDelta(t, 100.0, got.Outline.Points[2].X, 1e-9)
}

func TestLoader_Parse_schemaGate(t *testing.T) {
	fixture := func(version string) string {
		return fmt.Sprintf(`{"schemaVersion": %q, "sessionId": "s1"}`, version)
	}
	tt := []struct {
		name    string
		version string
		wantErr bool
	}{
		{name: "minimum without prefix", version: "1.0.0"},
		{name: "minimum with prefix", version: "v1.0.0"},
		{name: "newer", version: "2.3.4"},
		{name: "too old", version: "0.9.9", wantErr: true},
		{name: "not a version", version: "latest", wantErr: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Parse(fixture(tc.version))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedSchema)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	t.Run("missing schemaVersion", func(t *testing.T) {
		_, err := NewLoader().Parse(`{"sessionId": "s1"}`)
		assert.ErrorIs(t, err, ErrUnsupportedSchema)
	})
	t.Run("raised minimum", func(t *testing.T) {
		ldr := NewLoader(WithMinSchemaVersion("2.0.0"))
		_, err := ldr.Parse(fixture("1.2.0"))
		assert.ErrorIs(t, err, ErrUnsupportedSchema)
	})
}

func TestLoader_Parse_invalidInput(t *testing.T) {
	tt := []struct {
		name     string
		jsonData string
		contains string
	}{
		{
			name:     "no sessionId",
			jsonData: `{"schemaVersion": "1.0.0"}`,
			contains: "sessionId",
		},
		{
			name:     "broken json",
			jsonData: `{"schemaVersion": `,
			contains: "parsing archive",
		},
		{
			name: "lap order violated",
			jsonData: `{"schemaVersion": "1.0.0", "sessionId": "s1",
				"laps": [
					{"entityId": "1", "lapNumber": 2, "lapDuration": 90.0, "isValid": true},
					{"entityId": "1", "lapNumber": 2, "lapDuration": 91.0, "isValid": true}
				]}`,
			contains: "entity 1",
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Parse(tc.jsonData)
			assert.ErrorContains(t, err, tc.contains)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	assert.NoError(t, os.WriteFile(path, []byte(archiveFixture), 0o644))

	ldr := NewLoader()
	first, err := ldr.Load(context.Background(), path)
	assert.NoError(t, err)
	second, err := ldr.Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, "monza-2024-r", first.SessionID)
}

func TestLoader_Load_missingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), "/no/such/archive.json")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNormalizeColor(t *testing.T) {
	tt := []struct {
		arg  string
		want string
	}{
		{arg: "0600EF", want: "#0600EF"},
		{arg: "#DC0000", want: "#DC0000"},
		{arg: "abc", want: "#abc"},
		{arg: "AABBCCDD", want: "#AABBCCDD"},
		{arg: "red", want: "red"},
		{arg: "", want: ""},
		{arg: "  0600EF ", want: "#0600EF"},
	}
	for _, tc := range tt {
		t.Run(tc.arg, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeColor(tc.arg))
		})
	}
}
