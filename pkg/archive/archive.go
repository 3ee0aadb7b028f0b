package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"golang.org/x/mod/semver"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/utils"
)

// MinSchemaVersion is the oldest archive layout this loader accepts.
const MinSchemaVersion = "v1.0.0"

var (
	ErrSessionNotFound   = errors.New("session archive not found")
	ErrUnsupportedSchema = errors.New("unsupported archive schema")
)

type (
	// Session is one fully loaded archive. All collections are
	// read-only once loaded; consumers must not mutate them.
	Session struct {
		SchemaVersion string
		SessionID     string
		VenueID       string
		Laps          []model.LapRecord
		Telemetry     map[string][]model.RawTelemetrySample
		Entities      map[string]model.EntityInfo
		Outline       *model.TrackOutline
		// sha256 over the archive content, part of every cache key
		Fingerprint string
	}

	Option func(*Loader)

	Loader struct {
		minSchema string
		l         *log.Logger
	}
)

func WithMinSchemaVersion(version string) Option {
	return func(ldr *Loader) {
		if !strings.HasPrefix(version, "v") {
			version = "v" + version
		}
		ldr.minSchema = version
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(ldr *Loader) { ldr.l = logger }
}

func NewLoader(opts ...Option) *Loader {
	ret := &Loader{
		minSchema: MinSchemaVersion,
		l:         log.Default().Named("archive"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Load reads and parses the archive at path.
func (ldr *Loader) Load(ctx context.Context, path string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, path)
		}
		return nil, err
	}
	ret, err := ldr.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("loading archive %s: %w", path, err)
	}
	ldr.l.Info("archive loaded",
		log.String("path", path),
		log.String("session", ret.SessionID),
		log.Int("laps", len(ret.Laps)),
		log.Int("entities", len(ret.Entities)))
	return ret, nil
}

// Parse builds a Session from raw archive JSON.
func (ldr *Loader) Parse(jsonData string) (*Session, error) {
	obj, err := oj.ParseString(jsonData)
	if err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	version, _ := stringAt(obj, "$.schemaVersion")
	if err := checkSchema(version, ldr.minSchema); err != nil {
		return nil, err
	}
	sessionID, ok := stringAt(obj, "$.sessionId")
	if !ok || sessionID == "" {
		return nil, errors.New("archive has no sessionId")
	}
	venueID, _ := stringAt(obj, "$.venueId")

	ret := &Session{
		SchemaVersion: version,
		SessionID:     sessionID,
		VenueID:       venueID,
		Fingerprint:   utils.Fingerprint([]byte(jsonData)),
	}
	if _, err := extract(obj, "$.laps", &ret.Laps); err != nil {
		return nil, err
	}
	if err := validateLapOrder(ret.Laps); err != nil {
		return nil, err
	}
	if _, err := extract(obj, "$.telemetry", &ret.Telemetry); err != nil {
		return nil, err
	}
	for id, samples := range ret.Telemetry {
		for i := range samples {
			samples[i].EntityID = id
			samples[i].Idx = i
		}
	}
	if _, err := extract(obj, "$.entities", &ret.Entities); err != nil {
		return nil, err
	}
	for id, info := range ret.Entities {
		info.ID = id
		info.Color = normalizeColor(info.Color)
		ret.Entities[id] = info
	}
	var points []model.OutlinePoint
	found, err := extract(obj, "$.outline", &points)
	if err != nil {
		return nil, err
	}
	if found && len(points) > 0 {
		ret.Outline = &model.TrackOutline{VenueID: venueID, Points: points}
	}
	return ret, nil
}

// extract unmarshals the first JSONPath match into target.
func extract(obj any, path string, target any) (bool, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return false, err
	}
	res := expr.Get(obj)
	if len(res) == 0 || res[0] == nil {
		return false, nil
	}
	if err := oj.Unmarshal([]byte(oj.JSON(res[0])), target); err != nil {
		return false, fmt.Errorf("extracting %s: %w", path, err)
	}
	return true, nil
}

func stringAt(obj any, path string) (string, bool) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return "", false
	}
	res := expr.Get(obj)
	if len(res) == 0 {
		return "", false
	}
	ret, ok := res[0].(string)
	return ret, ok
}

// checkSchema tolerates a missing "v" prefix.
func checkSchema(version, minVersion string) error {
	if version == "" {
		return fmt.Errorf("%w: missing schemaVersion", ErrUnsupportedSchema)
	}
	toCheck := version
	if !strings.HasPrefix(toCheck, "v") {
		toCheck = "v" + toCheck
	}
	if !semver.IsValid(toCheck) {
		return fmt.Errorf("%w: cannot parse %q", ErrUnsupportedSchema, version)
	}
	if semver.Compare(toCheck, minVersion) < 0 {
		return fmt.Errorf("%w: got %s, need at least %s",
			ErrUnsupportedSchema, version, minVersion)
	}
	return nil
}

// lap numbers must be strictly increasing per entity
func validateLapOrder(laps []model.LapRecord) error {
	lastLap := map[string]int{}
	for i := range laps {
		rec := &laps[i]
		if last, ok := lastLap[rec.EntityID]; ok && rec.LapNumber <= last {
			return fmt.Errorf("laps for entity %s not strictly increasing at lap %d",
				rec.EntityID, rec.LapNumber)
		}
		lastLap[rec.EntityID] = rec.LapNumber
	}
	return nil
}

func normalizeColor(arg string) string {
	ret := strings.TrimSpace(arg)
	if ret == "" || strings.HasPrefix(ret, "#") {
		return ret
	}
	if isHex(ret) {
		return "#" + ret
	}
	return ret
}

func isHex(arg string) bool {
	if len(arg) != 3 && len(arg) != 6 && len(arg) != 8 {
		return false
	}
	for _, r := range arg {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
