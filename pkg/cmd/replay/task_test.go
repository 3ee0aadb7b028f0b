package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/utils"
)

const replayArchive = `{
  "schemaVersion": "1.0.0",
  "sessionId": "testring-r",
  "venueId": "testring",
  "entities": {
    "1": {"code": "VER", "name": "Max Verstappen", "team": "Red Bull", "color": "#0600EF"},
    "16": {"code": "LEC", "name": "Charles Leclerc", "team": "Ferrari", "color": "#DC0000"}
  },
  "telemetry": {
    "1": [
      {"x": 0, "y": 0, "speed": 180, "lapNumber": 1},
      {"x": 20, "y": 10, "speed": 200, "lapNumber": 1},
      {"x": 40, "y": 20, "speed": 220, "lapNumber": 1},
      {"x": 60, "y": 30, "speed": 210, "lapNumber": 2},
      {"x": 80, "y": 40, "speed": 190, "lapNumber": 2},
      {"x": 100, "y": 50, "speed": 180, "lapNumber": 2}
    ],
    "16": [
      {"x": 5, "y": 2, "speed": 181, "lapNumber": 1},
      {"x": 25, "y": 12, "speed": 201, "lapNumber": 1},
      {"x": 45, "y": 22, "speed": 221, "lapNumber": 1},
      {"x": 65, "y": 32, "speed": 211, "lapNumber": 2},
      {"x": 85, "y": 42, "speed": 191, "lapNumber": 2},
      {"x": 99, "y": 49, "speed": 181, "lapNumber": 2}
    ]
  },
  "outline": [
    {"x": 0, "y": 0},
    {"x": 50, "y": 50},
    {"x": 100, "y": 0}
  ]
}`

func setupReplayConfig(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(replayArchive), 0o600); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	config.Archive = path
	config.SampleRate = 2
	config.FPS = 200
	t.Cleanup(func() {
		config.Archive = ""
		config.SampleRate = 0
		config.FPS = 0
	})
}

func TestReplayTask_playOnce(t *testing.T) {
	setupReplayConfig(t)
	task := newReplayTask(0)
	assert.NoError(t, task.playOnce(context.Background()))

	_, err := task.registry.Get(config.Archive)
	assert.NoError(t, err)
}

func TestReplayTask_framesCached(t *testing.T) {
	setupReplayConfig(t)
	task := newReplayTask(0)
	ctx := context.Background()

	session, err := task.session(ctx)
	assert.NoError(t, err)
	key := frameKey{Fingerprint: session.Fingerprint, SampleRate: config.SampleRate}
	first, err := task.frames.Get(ctx, key)
	assert.NoError(t, err)
	assert.Len(t, *first, 3)
	second, err := task.frames.Get(ctx, key)
	assert.NoError(t, err)
	assert.Same(t, first, second)
}

func TestReplayTask_outlineNormalized(t *testing.T) {
	setupReplayConfig(t)
	task := newReplayTask(0)

	outline, err := task.outlines.Get(context.Background(), "testring")
	assert.NoError(t, err)
	assert.Equal(t, "testring", outline.VenueID)
	assert.Len(t, outline.Points, 3)
	for _, p := range outline.Points {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.LessOrEqual(t, p.X, 1000.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 1000.0)
	}
}

func TestReplayTask_invalidate(t *testing.T) {
	setupReplayConfig(t)
	task := newReplayTask(0)
	ctx := context.Background()

	_, err := task.session(ctx)
	assert.NoError(t, err)
	task.invalidate(config.Archive)
	_, err = task.registry.Get(config.Archive)
	assert.ErrorIs(t, err, utils.ErrUnknownSession)
}
