package reconciler

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Options configures a Reconciler.
type Options struct {
	// FirstRenderOnly folds for the initial mount only: elements are
	// sanitized, class components skip update-time concerns, providers with
	// no dead ends are elided and in-scope consumers are inlined.
	FirstRenderOnly bool `yaml:"firstRenderOnly"`
	// OptimizeNestedFunctions enables queueing render-prop closures for
	// deferred folding. When false, such closures are left opaque.
	OptimizeNestedFunctions bool `yaml:"optimizeNestedFunctions"`
	// Verbose logs every inlined component at info level.
	Verbose bool `yaml:"verbose"`

	// Logging configuration
	LogLevel      string    `yaml:"logLevel"`      // "error", "warn", "info", "debug"; empty disables logging
	LogTimeFormat string    `yaml:"logTimeFormat"` // strftime layout (default: DefaultLogTimeFormat)
	LogOutput     io.Writer `yaml:"-"`             // default: os.Stderr
	Logger        Logger    `yaml:"-"`             // overrides LogLevel/LogOutput when set

	Metrics *Metrics `yaml:"-"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		FirstRenderOnly:         false,
		OptimizeNestedFunctions: true,
		Verbose:                 false,
		LogLevel:                "warn",
		LogTimeFormat:           DefaultLogTimeFormat,
	}
}

// LoadOptions decodes YAML on top of DefaultOptions.
func LoadOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to decode options: %w", err)
	}
	return opts, nil
}

func (o Options) logger() Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if o.LogLevel == "" {
		return NewNoopLogger()
	}
	return NewLogger(ParseLogLevel(o.LogLevel), o.LogOutput, o.LogTimeFormat)
}
