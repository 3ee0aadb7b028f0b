package simulate

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/simulation/podium"
)

type (
	reportEntry struct {
		EntityID     string  `json:"entityId"`
		Code         string  `json:"code,omitempty"`
		Name         string  `json:"name,omitempty"`
		Win          float64 `json:"winProbability"`
		Podium       float64 `json:"podiumProbability"`
		MeanPosition float64 `json:"meanPosition"`
	}
	simulationReport struct {
		SessionID  string        `json:"sessionId"`
		Runs       int           `json:"runs"`
		Seed       uint64        `json:"seed"`
		RaceLength int           `json:"raceLength"`
		Entries    []reportEntry `json:"entries"`
	}
)

// newReport ranks entities by win probability, podium probability and
// entity id (in that order) so the output is stable across runs.
func newReport(
	session *archive.Session,
	params *simParams,
	prediction *podium.Prediction,
) *simulationReport {
	entries := make([]reportEntry, 0, len(prediction.Distributions))
	for id, dist := range prediction.Distributions {
		mean := 0.0
		for i, p := range dist {
			mean += float64(i+1) * p
		}
		entry := reportEntry{
			EntityID:     id,
			Win:          prediction.WinProbability(id),
			Podium:       prediction.PodiumProbability(id),
			MeanPosition: mean,
		}
		if info, ok := session.Entities[id]; ok {
			entry.Code = info.Code
			entry.Name = info.Name
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b reportEntry) int {
		if c := cmp.Compare(b.Win, a.Win); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Podium, a.Podium); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	return &simulationReport{
		SessionID:  session.SessionID,
		Runs:       prediction.Runs,
		Seed:       params.seed,
		RaceLength: params.raceLength,
		Entries:    entries,
	}
}

func writeReport(w io.Writer, report *simulationReport) error {
	if config.OutputFormat == "json" {
		buf, err := oj.Marshal(report, 2)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(buf))
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "POS\tENTITY\tCODE\tNAME\tWIN\tPODIUM\tMEAN POS\n")
	for i, e := range report.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f%%\t%.1f%%\t%.2f\n",
			i+1, e.EntityID, e.Code, e.Name,
			e.Win*100, e.Podium*100, e.MeanPosition)
	}
	return tw.Flush()
}
