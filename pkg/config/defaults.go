// Package config loads bubblestat settings from defaults, an optional YAML
// file, BUBBLESTAT_* environment variables and command-line flags.
package config

// Input defaults.
const (
	DefaultLabelColumn = ""
)

// Bootstrap defaults.
const (
	DefaultResamples  = 1000
	DefaultQuantile   = 0.5
	DefaultConfidence = 0.95
	DefaultSeed       = 0
	DefaultMembership = "row"
	DefaultEmptyMonth = "skip"
)

// Combine defaults.
const (
	DefaultCombineMode = "weighted"
)

// Output defaults.
const (
	DefaultOutputDir     = "figures"
	DefaultOutputSink    = "file"
	DefaultOutputFormat  = "pdf"
	DefaultOutputTitle   = "Coverage and filter bubbles by addiction group"
	DefaultOutputTheme   = "light"
	DefaultOutputSummary = "text"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Telemetry defaults.
const (
	DefaultSampleRatio     = 0.0
	DefaultShutdownTimeout = 5
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Input: InputConfig{LabelColumn: DefaultLabelColumn},
		Bootstrap: BootstrapConfig{
			Resamples:  DefaultResamples,
			Quantile:   DefaultQuantile,
			Confidence: DefaultConfidence,
			Seed:       DefaultSeed,
			Membership: DefaultMembership,
			EmptyMonth: DefaultEmptyMonth,
		},
		Combine: CombineConfig{Mode: DefaultCombineMode},
		Output: OutputConfig{
			Dir:     DefaultOutputDir,
			Sink:    DefaultOutputSink,
			Format:  DefaultOutputFormat,
			Title:   DefaultOutputTitle,
			Theme:   DefaultOutputTheme,
			Summary: DefaultOutputSummary,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Telemetry: TelemetryConfig{
			SampleRatio:     DefaultSampleRatio,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}
