package configs

// Config holds all configuration for an analyzer run.
type Config struct {
	Log         LogConfig         `mapstructure:"log" validate:"required"`
	Input       InputConfig       `mapstructure:"input" validate:"required"`
	Output      OutputConfig      `mapstructure:"output" validate:"required"`
	Aggregation AggregationConfig `mapstructure:"aggregation" validate:"required"`
	Classifier  ClassifierConfig  `mapstructure:"classifier" validate:"required"`
	Status      StatusConfig      `mapstructure:"status"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=trace debug info warn error"`
}

// InputConfig tells where the logs are and which lines to drop.
type InputConfig struct {
	Path             string   `mapstructure:"path" validate:"required"`
	IgnoreSubstrings []string `mapstructure:"ignore_substrings"`
}

// OutputConfig holds report sink configuration.
type OutputConfig struct {
	RootDir string `mapstructure:"root_dir" validate:"required"`
	Format  string `mapstructure:"format" validate:"required,oneof=csv json"`
}

// AggregationConfig holds engine configuration.
type AggregationConfig struct {
	Levels           []int     `mapstructure:"levels" validate:"required,min=1,unique,dive,min=1"`
	Window           string    `mapstructure:"window" validate:"required,window"` // ISO-8601 (P1D) or Go duration (24h)
	Shards           int       `mapstructure:"shards" validate:"min=1,max=256"`
	LatencyQuantiles []float64 `mapstructure:"latency_quantiles" validate:"omitempty,dive,gt=0,lt=1"`
}

// ClassifierConfig holds the client class markers.
type ClassifierConfig struct {
	IOSMarker     string `mapstructure:"ios_marker" validate:"required"`
	AndroidMarker string `mapstructure:"android_marker" validate:"required"`
	WebMarker     string `mapstructure:"web_marker" validate:"required"`
	OSFallback    bool   `mapstructure:"os_fallback"`
}

// StatusConfig holds the run status server configuration. Port 0 disables it.
type StatusConfig struct {
	Port              int `mapstructure:"port" validate:"min=0,max=65535"`
	ReadHeaderTimeout int `mapstructure:"read_header_timeout" validate:"min=1"` // seconds
	WriteTimeout      int `mapstructure:"write_timeout" validate:"min=1"`       // seconds
	IdleTimeout       int `mapstructure:"idle_timeout" validate:"min=1"`        // seconds
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	// TextfilePath, when set, receives a dump of all metrics at the end of the run.
	TextfilePath string `mapstructure:"textfile_path"`
}
