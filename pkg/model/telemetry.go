package model

// RawTelemetrySample is one recorded telemetry point for an entity.
// Sequences are ordered by Idx and may have differing lengths per entity.
type RawTelemetrySample struct {
	EntityID  string  `json:"entityId"`
	Idx       int     `json:"idx"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Speed     float64 `json:"speed"` // unit: km/h
	LapNumber int     `json:"lapNumber"`
}

// EntityInfo is the static display metadata for one entity.
// Color carries a leading '#' when it is a hex value.
type EntityInfo struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Team  string `json:"team"`
	Color string `json:"color"`
}

type (
	// EntityState is the complete per-entity payload of a frame.
	EntityState struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Speed float64 `json:"speed"` // unit: km/h
		Lap   int     `json:"lap"`
		Code  string  `json:"code"`
		Name  string  `json:"name"`
		Team  string  `json:"team"`
		Color string  `json:"color"`
	}

	// Frame is one synchronized snapshot across the selected entities.
	// Frames form a finite sequence indexed 0..F-1 and are immutable
	// after creation. An entity without a sample at this index is
	// absent from Entities.
	Frame struct {
		Index    int                    `json:"index"`
		Entities map[string]EntityState `json:"entities"`
	}
)

type (
	OutlinePoint struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// TrackOutline approximates the circuit as a closed loop.
	// Derived once per venue and memoized.
	TrackOutline struct {
		VenueID string         `json:"venueId"`
		Points  []OutlinePoint `json:"points"`
	}
)
