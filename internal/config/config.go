package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. STREETCURATE_DB.
const EnvPrefix = "STREETCURATE"

// Profile is the capture profile every fleet camera is expected to produce.
type Profile struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Format string `mapstructure:"format"`
	Mode   string `mapstructure:"mode"`
}

// DefaultProfile is the city fleet reference: 2048x1024 RGB PNGs.
func DefaultProfile() Profile {
	return Profile{Width: 2048, Height: 1024, Format: "PNG", Mode: "RGB"}
}

// Size returns the expected (width, height) pair.
func (p Profile) Size() [2]int {
	return [2]int{p.Width, p.Height}
}

// Config holds everything the CLI reads from flags, files and the environment.
type Config struct {
	Root       string  `mapstructure:"root"`
	DB         string  `mapstructure:"db"`
	LogLevel   string  `mapstructure:"log_level"`
	Confidence float64 `mapstructure:"confidence"`
	DropNulls  bool    `mapstructure:"drop_nulls"`
	Profile    Profile `mapstructure:"profile"`
}

// LabelDir is the folder holding the annotation files.
func (c *Config) LabelDir() string {
	return strings.TrimRight(c.Root, "/") + "/labels"
}

// ImageDir is the folder holding the images.
func (c *Config) ImageDir() string {
	return strings.TrimRight(c.Root, "/") + "/images"
}

func setDefaults(v *viper.Viper) {
	p := DefaultProfile()
	v.SetDefault("root", "data/dataset_cities")
	v.SetDefault("db", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("confidence", 0.4)
	v.SetDefault("drop_nulls", false)
	v.SetDefault("profile.width", p.Width)
	v.SetDefault("profile.height", p.Height)
	v.SetDefault("profile.format", p.Format)
	v.SetDefault("profile.mode", p.Mode)
}

// Load builds the configuration. Precedence, highest first: flags that were
// set, STREETCURATE_* environment variables (a .env file in the working
// directory is loaded first when present), the YAML file at configPath, then
// defaults. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		bindings := map[string]string{
			"root":       "root",
			"db":         "db",
			"log_level":  "log-level",
			"confidence": "conf",
			"drop_nulls": "drop-nulls",
		}
		for key, name := range bindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %f", c.Confidence)
	}
	if c.Profile.Width <= 0 || c.Profile.Height <= 0 {
		return fmt.Errorf("profile size must be positive, got %dx%d", c.Profile.Width, c.Profile.Height)
	}
	c.Profile.Format = strings.ToUpper(c.Profile.Format)
	c.Profile.Mode = strings.ToUpper(c.Profile.Mode)
	return nil
}
