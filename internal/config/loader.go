// Package config provides configuration loading for Helios.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for helios.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself, which Viper's built-in SetConfigName
// would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("helios")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: HELIOS_SERVER_HTTP_ADDR
	viper.SetEnvPrefix("HELIOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a helios config file with
// an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".helios"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "helios"))
		}
	} else {
		paths = append(paths, "/etc/helios")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for helios.yaml or
// .yml. Returns the full path of the first match, or empty string.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "helios"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: HELIOS_SERVER_HTTP_ADDR overrides server.http_addr.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.shutdown_timeout")

	_ = viper.BindEnv("rules.path")
	_ = viper.BindEnv("rules.max_rules")

	_ = viper.BindEnv("metrics.provider")
	_ = viper.BindEnv("metrics.namespace")

	_ = viper.BindEnv("store.enabled")
	_ = viper.BindEnv("store.path")
	_ = viper.BindEnv("store.max_records")

	_ = viper.BindEnv("dev_mode")
}
