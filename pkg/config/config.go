package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidResamples  = errors.New("bootstrap resamples must be positive")
	ErrInvalidQuantile   = errors.New("bootstrap quantile must be in (0, 1)")
	ErrInvalidConfidence = errors.New("bootstrap confidence must be in (0, 1)")
	ErrInvalidOption     = errors.New("unsupported option value")
	ErrInvalidRatio      = errors.New("telemetry sample ratio must be in [0, 1]")
	ErrMissingInput      = errors.New("missing input file")
)

const (
	configName = "bubblestat"
	configType = "yaml"
	envPrefix  = "BUBBLESTAT"
)

// Accepted option values.
var (
	membershipValues = []string{"row", "ever"}
	emptyMonthValues = []string{"skip", "fail"}
	combineValues    = []string{"weighted", "mean", "sum"}
	sinkValues       = []string{"file", "html", "both"}
	formatValues     = []string{"pdf", "svg", "eps"}
	themeValues      = []string{"light", "dark"}
	summaryValues    = []string{"text", "json", "yaml", "none"}
	logFormatValues  = []string{"text", "json"}
)

// Config holds all bubblestat settings.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Combine   CombineConfig   `mapstructure:"combine"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// InputConfig names the tables a run reads.
type InputConfig struct {
	Metrics   string `mapstructure:"metrics"`
	Labels    string `mapstructure:"labels"`
	Coverage  string `mapstructure:"coverage"`
	Estimates string `mapstructure:"estimates"`
	// LabelColumn overrides the severity code column of the labels table.
	LabelColumn string `mapstructure:"label_column"`
}

// BootstrapConfig controls the filter-bubble estimator.
type BootstrapConfig struct {
	Resamples  int     `mapstructure:"resamples"`
	Quantile   float64 `mapstructure:"quantile"`
	Confidence float64 `mapstructure:"confidence"`
	Seed       uint64  `mapstructure:"seed"`
	Membership string  `mapstructure:"membership"`
	EmptyMonth string  `mapstructure:"empty_month"`
}

// CombineConfig controls how the addicted cohorts are merged for the
// combined figures.
type CombineConfig struct {
	Mode string `mapstructure:"mode"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Sink   string `mapstructure:"sink"`
	Format string `mapstructure:"format"`
	// Estimates is the export path of the estimates table; empty disables it.
	Estimates string `mapstructure:"estimates"`
	Title     string `mapstructure:"title"`
	Theme     string `mapstructure:"theme"`
	Summary   string `mapstructure:"summary"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	Environment     string  `mapstructure:"environment"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string  `mapstructure:"otlp_headers"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SampleRatio     float64 `mapstructure:"sample_ratio"`
	MetricsTextfile string  `mapstructure:"metrics_textfile"`
	ShutdownTimeout int     `mapstructure:"shutdown_timeout"`
}

// FlagKeys maps command-line flag names to configuration keys. Flags in
// this map take precedence over file and environment values when set.
var FlagKeys = map[string]string{
	"metrics":          "input.metrics",
	"labels":           "input.labels",
	"coverage":         "input.coverage",
	"estimates":        "input.estimates",
	"label-column":     "input.label_column",
	"resamples":        "bootstrap.resamples",
	"quantile":         "bootstrap.quantile",
	"confidence":       "bootstrap.confidence",
	"seed":             "bootstrap.seed",
	"membership":       "bootstrap.membership",
	"empty-month":      "bootstrap.empty_month",
	"combine":          "combine.mode",
	"out":              "output.dir",
	"sink":             "output.sink",
	"format":           "output.format",
	"export-estimates": "output.estimates",
	"title":            "output.title",
	"theme":            "output.theme",
	"summary":          "output.summary",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"metrics-textfile": "telemetry.metrics_textfile",
}

// LoadConfig loads configuration. An explicit configPath must exist;
// otherwise bubblestat.yaml is searched in ., ./config and /etc/bubblestat
// and a missing file is not an error. flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/bubblestat")
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}

			if err := viperCfg.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input.metrics", "")
	viperCfg.SetDefault("input.labels", "")
	viperCfg.SetDefault("input.coverage", "")
	viperCfg.SetDefault("input.estimates", "")
	viperCfg.SetDefault("input.label_column", DefaultLabelColumn)

	viperCfg.SetDefault("bootstrap.resamples", DefaultResamples)
	viperCfg.SetDefault("bootstrap.quantile", DefaultQuantile)
	viperCfg.SetDefault("bootstrap.confidence", DefaultConfidence)
	viperCfg.SetDefault("bootstrap.seed", DefaultSeed)
	viperCfg.SetDefault("bootstrap.membership", DefaultMembership)
	viperCfg.SetDefault("bootstrap.empty_month", DefaultEmptyMonth)

	viperCfg.SetDefault("combine.mode", DefaultCombineMode)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.sink", DefaultOutputSink)
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.estimates", "")
	viperCfg.SetDefault("output.title", DefaultOutputTitle)
	viperCfg.SetDefault("output.theme", DefaultOutputTheme)
	viperCfg.SetDefault("output.summary", DefaultOutputSummary)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.metrics_textfile", "")
	viperCfg.SetDefault("telemetry.shutdown_timeout", DefaultShutdownTimeout)
}

// Validate checks value ranges and option names.
func (c *Config) Validate() error {
	if c.Bootstrap.Resamples <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidResamples, c.Bootstrap.Resamples)
	}

	if c.Bootstrap.Quantile <= 0 || c.Bootstrap.Quantile >= 1 {
		return fmt.Errorf("%w: %g", ErrInvalidQuantile, c.Bootstrap.Quantile)
	}

	if c.Bootstrap.Confidence <= 0 || c.Bootstrap.Confidence >= 1 {
		return fmt.Errorf("%w: %g", ErrInvalidConfidence, c.Bootstrap.Confidence)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidRatio, c.Telemetry.SampleRatio)
	}

	options := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"bootstrap.membership", c.Bootstrap.Membership, membershipValues},
		{"bootstrap.empty_month", c.Bootstrap.EmptyMonth, emptyMonthValues},
		{"combine.mode", c.Combine.Mode, combineValues},
		{"output.sink", c.Output.Sink, sinkValues},
		{"output.format", c.Output.Format, formatValues},
		{"output.theme", c.Output.Theme, themeValues},
		{"output.summary", c.Output.Summary, summaryValues},
		{"logging.format", c.Logging.Format, logFormatValues},
	}

	for _, opt := range options {
		if !slices.Contains(opt.allowed, opt.value) {
			return fmt.Errorf("%w: %s %q (want one of %s)",
				ErrInvalidOption, opt.key, opt.value, strings.Join(opt.allowed, ", "))
		}
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return fmt.Errorf("%w: logging.level %q", ErrInvalidOption, c.Logging.Level)
	}

	return nil
}

// ValidateRun checks that the tables the full pipeline reads are named.
func (c *Config) ValidateRun() error {
	if c.Input.Metrics == "" {
		return fmt.Errorf("%w: input.metrics", ErrMissingInput)
	}

	if c.Input.Labels == "" {
		return fmt.Errorf("%w: input.labels", ErrMissingInput)
	}

	return nil
}

// ValidateRender checks that at least one precomputed table is named.
func (c *Config) ValidateRender() error {
	if c.Input.Coverage == "" && c.Input.Estimates == "" {
		return fmt.Errorf("%w: input.coverage or input.estimates", ErrMissingInput)
	}

	return nil
}

// SlogLevel parses the configured log level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level: %w", err)
	}

	return level, nil
}
