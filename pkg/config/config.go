package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	Archive           string  // path to the recorded session archive (JSON)
	Scenario          string  // path to the scenario file (YAML)
	LogLevel          string  // sets the log level (zap log level values)
	LogFormat         string  // text vs json
	LogFilter         string  // zapfilter rules for text format (e.g. "racesim.*:debug *:info")
	EnableTelemetry   bool    // enable telemetry
	TelemetryEndpoint string  // endpoint for telemetry (otlp-grpc); empty means stdout
	ProfilingPort     int     // port for profiling
	SampleRate        int     // decimation stride for frame preprocessing
	Runs              int     // number of simulation runs in the ensemble
	Seed              int64   // random seed for the ensemble (0 picks one)
	RaceLength        int     // race length in laps (0 uses the scenario value)
	MinValidLaps      int     // minimum valid laps required to build a profile
	MinLapTime        float64 // plausibility floor for lap durations (seconds)
	PitStopsMin       int     // lower bound for generated pit stop counts
	PitStopsMax       int     // upper bound for generated pit stop counts
	Workers           int     // parallel simulation workers (0 uses GOMAXPROCS)
	FPS               int     // playback rate for replay
	WatchArchive      bool    // reload the archive when the file changes
	StaleDuration     string  // duration after which a loaded session is considered stale
	OutputFormat      string  // output format for reports (text, json)
)

// Config holds the configuration values which are used by the application
type Config struct {
	PrintFrames bool // if true, each frame is printed on debug level during replay
}
