package util

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigSpec maps configuration keys, dotted by section ("server.listen-port"),
// to their description. Values live in the global viper instance.
type ConfigSpec map[string]ConfigVarSpec

// ConfigVarSpec describes one configuration key
type ConfigVarSpec struct {
	// ParseFunc normalizes the raw value once every source is bound
	ParseFunc func(any) (any, error)

	// DefaultValue also fixes the key type: string, int or bool
	DefaultValue any
	Help         string
	EnvVar       string
}

// LoadConfiguration binds every key of the spec. Precedence, highest first:
// flags added with AddFlag, environment variables, the YAML file at
// configPath (skipped when empty), defaults.
func (spec ConfigSpec) LoadConfiguration(configPath string) error {
	if configPath != "" {
		if err := readConfigFile(configPath); err != nil {
			return err
		}
	}
	for name, varSpec := range spec {
		if err := bindConfigVar(name, varSpec); err != nil {
			return err
		}
	}
	return nil
}

func readConfigFile(path string) error {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return nil
}

func bindConfigVar(name string, varSpec ConfigVarSpec) error {
	viper.SetDefault(name, varSpec.DefaultValue)
	if varSpec.EnvVar != "" {
		_ = viper.BindEnv(name, varSpec.EnvVar)
	}
	if varSpec.ParseFunc == nil {
		return nil
	}
	parsed, err := varSpec.ParseFunc(viper.Get(name))
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", name, err)
	}
	viper.Set(name, parsed)
	return nil
}

// AddFlag registers flagName on flags with the key's default and help, and
// binds it to the key. Call it before LoadConfiguration.
func (spec ConfigSpec) AddFlag(flags *pflag.FlagSet, flagName, configVarName string) {
	varSpec, ok := spec[configVarName]
	if !ok {
		panic(fmt.Sprintf("unknown config var: %s", configVarName))
	}
	switch defaultValue := varSpec.DefaultValue.(type) {
	case string:
		flags.String(flagName, defaultValue, varSpec.Help)
	case int:
		flags.Int(flagName, defaultValue, varSpec.Help)
	case bool:
		flags.Bool(flagName, defaultValue, varSpec.Help)
	default:
		panic(fmt.Sprintf("invalid config var type: var=%s type=%T", configVarName, varSpec.DefaultValue))
	}
	_ = viper.BindPFlag(configVarName, flags.Lookup(flagName))
}

func (spec ConfigSpec) GetString(name string) string {
	return viper.GetString(name)
}

func (spec ConfigSpec) GetInt(name string) int {
	return viper.GetInt(name)
}

func (spec ConfigSpec) GetBool(name string) bool {
	return viper.GetBool(name)
}

// GetSeconds reads an integer key holding a number of seconds
func (spec ConfigSpec) GetSeconds(name string) time.Duration {
	return time.Duration(viper.GetInt(name)) * time.Second
}

// GetStringSlice reads a key normalized by ParseHostList or given as a YAML list
func (spec ConfigSpec) GetStringSlice(name string) []string {
	return viper.GetStringSlice(name)
}

// SetDefault overrides the default of a key, for tests
func (spec ConfigSpec) SetDefault(name string, value any) {
	viper.SetDefault(name, value)
}

// Reset drops every bound value, for tests
func (spec ConfigSpec) Reset() {
	viper.Reset()
}
