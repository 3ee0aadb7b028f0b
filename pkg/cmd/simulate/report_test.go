package simulate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/simulation/podium"
)

func samplePrediction() *podium.Prediction {
	return &podium.Prediction{
		Runs: 10,
		Distributions: map[string][]float64{
			"1":  {0.6, 0.3, 0.1},
			"16": {0.3, 0.4, 0.3},
			"44": {0.1, 0.3, 0.6},
		},
	}
}

func sampleSession() *archive.Session {
	return &archive.Session{
		SessionID: "monza-2024-r",
		Entities: map[string]model.EntityInfo{
			"1": {ID: "1", Code: "VER", Name: "Max Verstappen"},
		},
	}
}

func TestNewReport_ranking(t *testing.T) {
	params := &simParams{seed: 42, raceLength: 53}
	report := newReport(sampleSession(), params, samplePrediction())

	assert.Equal(t, "monza-2024-r", report.SessionID)
	assert.Equal(t, 10, report.Runs)
	assert.Equal(t, uint64(42), report.Seed)
	ids := make([]string, 0, len(report.Entries))
	for _, e := range report.Entries {
		ids = append(ids, e.EntityID)
	}
	assert.Equal(t, []string{"1", "16", "44"}, ids)
	assert.Equal(t, "VER", report.Entries[0].Code)
	assert.InDelta(t, 0.6, report.Entries[0].Win, 1e-9)
	assert.InDelta(t, 1.0, report.Entries[0].Podium, 1e-9)
	assert.InDelta(t, 1.5, report.Entries[0].MeanPosition, 1e-9)
}

func TestNewReport_tiebreakByPodium(t *testing.T) {
	prediction := &podium.Prediction{
		Runs: 10,
		Distributions: map[string][]float64{
			"a": {0.5, 0.1, 0.1, 0.3},
			"b": {0.5, 0.2, 0.2, 0.1},
		},
	}
	report := newReport(&archive.Session{}, &simParams{}, prediction)
	assert.Equal(t, "b", report.Entries[0].EntityID)
	assert.Equal(t, "a", report.Entries[1].EntityID)
}

func TestWriteReport_text(t *testing.T) {
	report := newReport(sampleSession(), &simParams{seed: 42}, samplePrediction())
	var buf strings.Builder
	assert.NoError(t, writeReport(&buf, report))
	assert.Contains(t, buf.String(), "ENTITY")
	assert.Contains(t, buf.String(), "VER")
	assert.Contains(t, buf.String(), "60.0%")
}

func TestWriteReport_json(t *testing.T) {
	config.OutputFormat = "json"
	defer func() { config.OutputFormat = "" }()

	report := newReport(sampleSession(), &simParams{seed: 42}, samplePrediction())
	var buf strings.Builder
	assert.NoError(t, writeReport(&buf, report))
	assert.Contains(t, buf.String(), "winProbability")
	assert.Contains(t, buf.String(), "monza-2024-r")
}
