// Package conf loads ambient configuration: GPUFIND_* environment variables
// and an optional config file supply defaults that command-line flags always
// override.
package conf

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/gpufind/gpufind/gpu"
)

// Config is the ambient configuration.
type Config struct {
	// Backend is the default backend directive: auto, cpu, gpu, metal,
	// vulkan.
	Backend string `mapstructure:"backend"`

	// Verbose enables debug logging by default.
	Verbose bool `mapstructure:"verbose"`

	// Period enables the leading-period rule for every glob predicate
	// (-name, -iname, -path, -ipath).
	Period bool `mapstructure:"period"`
}

// Load reads GPUFIND_* environment variables and, when present,
// $XDG_CONFIG_HOME/gpufind/config.yaml. A missing file is not an error;
// a malformed one falls back to defaults.
func Load() Config {
	v := viper.New()
	v.SetDefault("backend", "auto")
	v.SetDefault("verbose", false)
	v.SetDefault("period", false)

	v.SetEnvPrefix("GPUFIND")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := configDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{Backend: "auto"}
	}
	return cfg
}

// configDir resolves $XDG_CONFIG_HOME/gpufind, defaulting to
// ~/.config/gpufind.
func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gpufind")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gpufind")
}

// Force maps the backend name onto the selector directive. Unknown names
// mean auto.
func (c Config) Force() gpu.Force {
	switch c.Backend {
	case "cpu":
		return gpu.ForceCPU
	case "gpu":
		return gpu.ForceGPU
	case "metal":
		return gpu.ForceMetal
	case "vulkan":
		return gpu.ForceVulkan
	default:
		return gpu.ForceAuto
	}
}
