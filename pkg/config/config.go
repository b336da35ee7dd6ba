// Package config builds the explicit configuration of silk from viper once at
// startup. Nothing below the command layer reads viper directly.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jingkaihe/silk/pkg/status"
	"github.com/jingkaihe/silk/pkg/targets"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Viper keys
const (
	KeyHomeDir         = "home_dir"
	KeyCacheDir        = "cache_dir"
	KeyStateDir        = "state_dir"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyQuiet           = "quiet"
	KeyTargets         = "targets"
	KeyScanIgnore      = "scan.ignore"
	KeyDisplayDuration = "status.display_duration"
	KeyTracingEnabled  = "tracing.enabled"
	KeyTracingSampler  = "tracing.sampler"
	KeyTracingRatio    = "tracing.ratio"
)

// EnvPrefix is the prefix of every environment variable read by silk
const EnvPrefix = "SILK"

// ErrCacheDirectoryNotFound is returned when no cache directory is configured
// and the home directory cannot be determined
var ErrCacheDirectoryNotFound = errors.New("cannot determine cache directory")

// TargetConfig is a link target declared in the config file
type TargetConfig struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	Dir         string `mapstructure:"dir"`
}

// ScanConfig controls skill discovery
type ScanConfig struct {
	Ignore []string
}

// StatusConfig controls the status bar
type StatusConfig struct {
	DisplayDuration time.Duration
}

// TracingConfig controls OpenTelemetry export
type TracingConfig struct {
	Enabled bool
	Sampler string
	Ratio   float64
}

// Config is the resolved configuration
type Config struct {
	HomeDir   string
	CacheDir  string
	StateDir  string
	LogLevel  string
	LogFormat string
	Quiet     bool
	Targets   []targets.Target
	Scan      ScanConfig
	Status    StatusConfig
	Tracing   TracingConfig
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyQuiet, false)
	v.SetDefault(KeyDisplayDuration, status.DefaultDisplayDuration)
	v.SetDefault(KeyTracingEnabled, false)
	v.SetDefault(KeyTracingSampler, "ratio")
	v.SetDefault(KeyTracingRatio, 1.0)
}

// Load resolves the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	home := v.GetString(KeyHomeDir)
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}

	cacheDir, err := cacheDir(v.GetString(KeyCacheDir), home)
	if err != nil {
		return nil, err
	}

	stateDir := targets.ExpandHome(v.GetString(KeyStateDir), home)
	if stateDir == "" {
		if home != "" {
			stateDir = filepath.Join(home, ".silk")
		} else {
			stateDir = filepath.Join(os.TempDir(), "silk")
		}
	}

	defs, err := targetDefinitions(v.Get(KeyTargets))
	if err != nil {
		return nil, err
	}

	duration := v.GetDuration(KeyDisplayDuration)
	if duration <= 0 {
		duration = status.DefaultDisplayDuration
	}

	return &Config{
		HomeDir:   home,
		CacheDir:  cacheDir,
		StateDir:  stateDir,
		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
		Quiet:     v.GetBool(KeyQuiet),
		Targets:   targets.Resolve(defs, home),
		Scan: ScanConfig{
			Ignore: v.GetStringSlice(KeyScanIgnore),
		},
		Status: StatusConfig{
			DisplayDuration: duration,
		},
		Tracing: TracingConfig{
			Enabled: v.GetBool(KeyTracingEnabled),
			Sampler: v.GetString(KeyTracingSampler),
			Ratio:   v.GetFloat64(KeyTracingRatio),
		},
	}, nil
}

func cacheDir(configured, home string) (string, error) {
	if configured != "" {
		dir := targets.ExpandHome(configured, home)
		if dir == "" {
			return "", ErrCacheDirectoryNotFound
		}
		return dir, nil
	}
	if home == "" {
		return "", ErrCacheDirectoryNotFound
	}
	return filepath.Join(home, ".cache", "silk", "repos"), nil
}

// targetDefinitions overlays configured targets on the built-in ones
func targetDefinitions(raw interface{}) ([]targets.Definition, error) {
	defs := targets.Defaults()
	if raw == nil {
		return defs, nil
	}

	var configured []TargetConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &configured,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create targets decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "invalid targets configuration")
	}

	extra := make([]targets.Definition, 0, len(configured))
	for i, tc := range configured {
		if tc.Name == "" {
			return nil, errors.Errorf("target %d: name is required", i)
		}
		if tc.Dir == "" {
			return nil, errors.Errorf("target %q: dir is required", tc.Name)
		}
		extra = append(extra, targets.Fixed(tc.Name, tc.DisplayName, tc.Dir))
	}

	return targets.Merge(defs, extra...), nil
}
