// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/spf13/viper"
)

var (
	// Dir is the ksites settings directory in the user's home
	Dir = filepath.Join(home(), ".ksites")

	// RootSettingsFile is the settings file read when --config isn't set
	RootSettingsFile = filepath.Join(Dir, "settings.yaml")

	// NucleaseDBFile is the default path of the custom nuclease database
	NucleaseDBFile = filepath.Join(Dir, "nucleases.tsv")
)

// EnvPrefix is the prefix of environment variables overriding settings, ex: KSITES_NUCLEASE
const EnvPrefix = "KSITES"

// FilterConfig is the sequence quality filter
type FilterConfig struct {
	// GCMin and GCMax bound the accepted guide GC fraction
	GCMin float64 `mapstructure:"gc-min" validate:"gte=0,lte=1"`
	GCMax float64 `mapstructure:"gc-max" validate:"gte=0,lte=1,gtefield=GCMin"`

	// GCIdeal is the GC fraction without an efficiency penalty
	GCIdeal float64 `mapstructure:"gc-ideal" validate:"gtefield=GCMin,ltefield=GCMax"`

	// HomopolymerRun is the shortest single-base run that rejects a guide, 0 disables it
	HomopolymerRun int `mapstructure:"homopolymer-run" validate:"gte=0"`

	// MaxRepeat is the longest single-base run allowed, 0 disables it
	MaxRepeat int `mapstructure:"max-repeat" validate:"gte=0"`

	// SelfCompMax is the longest self-complementary stretch allowed, 0 disables it
	SelfCompMax int `mapstructure:"self-comp-max" validate:"gte=0"`
}

// ScoreConfig is settings for efficiency scoring
type ScoreConfig struct {
	// MinEfficiency is the lowest efficiency score reported
	MinEfficiency float64 `mapstructure:"min-efficiency" validate:"gte=0,lte=1"`

	// SelfCompMinRun is the shortest self-complementary run penalized
	SelfCompMinRun int `mapstructure:"self-comp-min-run" validate:"gte=0"`
}

// OffTargetConfig is settings for off-target scoring
type OffTargetConfig struct {
	// MaxMismatches is the most mismatches an off-target can have and be scored
	MaxMismatches int `mapstructure:"max-mismatches" validate:"gte=0,lte=10"`
}

// PathwayConfig is where pathway membership comes from. Both empty
// means pathway conflicts aren't checked
type PathwayConfig struct {
	// File is a gene/pathway TSV
	File string `mapstructure:"file"`

	// PostgresURL is a connection string to a database with a gene_pathways table
	PostgresURL string `mapstructure:"postgres-url"`
}

// LogConfig is logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal off disabled"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// ServeConfig is settings for the HTTP server
type ServeConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// Config is the root-level settings struct and is a mix
// of settings available in settings.yaml and those
// available from the command line
type Config struct {
	// Nuclease is the default nuclease to design with
	Nuclease string `mapstructure:"nuclease" validate:"required"`

	// NucleaseDB is the path to the custom nuclease database
	NucleaseDB string `mapstructure:"nuclease-db"`

	// Workers is the most designs run at once, 0 is one per CPU
	Workers int `mapstructure:"workers" validate:"gte=0"`

	Filter    FilterConfig    `mapstructure:"filter"`
	Score     ScoreConfig     `mapstructure:"score"`
	OffTarget OffTargetConfig `mapstructure:"offtarget"`
	Pathway   PathwayConfig   `mapstructure:"pathway"`
	Log       LogConfig       `mapstructure:"log"`
	Serve     ServeConfig     `mapstructure:"serve"`
}

// SetDefaults sets the default of every setting on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("nuclease", "SpCas9")
	v.SetDefault("nuclease-db", NucleaseDBFile)
	v.SetDefault("workers", 0)

	v.SetDefault("filter.gc-min", 0.40)
	v.SetDefault("filter.gc-max", 0.70)
	v.SetDefault("filter.gc-ideal", 0.55)
	v.SetDefault("filter.homopolymer-run", 4)
	v.SetDefault("filter.max-repeat", 4)
	v.SetDefault("filter.self-comp-max", 0)

	v.SetDefault("score.min-efficiency", 0.3)
	v.SetDefault("score.self-comp-min-run", 4)

	v.SetDefault("offtarget.max-mismatches", 4)

	v.SetDefault("pathway.file", "")
	v.SetDefault("pathway.postgres-url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("serve.addr", ":8080")
}

// SetEnv makes v read KSITES_ environment variables, ex: KSITES_FILTER_GC_MIN
func SetEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the settings in v
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New returns a Config populated by Viper settings (either from the
// settings.yaml, the environment or command line arguments)
func New() (*Config, error) {
	return Load(viper.GetViper())
}

// Default returns a Config with only the default settings
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	c, err := Load(v)
	if err != nil {
		panic(err) // the defaults are static
	}
	return c
}

var (
	validate     = validator.New(validator.WithRequiredStructEnabled())
	typeOfConfig = reflect.TypeOf(Config{})
)

// Validate checks ranges and that gc-min <= gc-ideal <= gc-max
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %s %s", settingName(fe), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Settings are the design thresholds of the config
func (c *Config) Settings() guides.Settings {
	return guides.Settings{
		Quality: guides.QualityRules{
			GCMin:          c.Filter.GCMin,
			GCMax:          c.Filter.GCMax,
			HomopolymerRun: c.Filter.HomopolymerRun,
			MaxRepeat:      c.Filter.MaxRepeat,
			SelfCompMax:    c.Filter.SelfCompMax,
		},
		Efficiency: guides.EfficiencyScorer{
			GCIdeal:        c.Filter.GCIdeal,
			SelfCompMinRun: c.Score.SelfCompMinRun,
		},
		MaxMismatches: c.OffTarget.MaxMismatches,
		Workers:       c.Workers,
	}
}

// settingName turns a validator namespace, ex: Config.Filter.GCMin, into a
// settings key, ex: filter.gc-min
func settingName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}

	t := typeOfConfig
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		f, ok := t.FieldByName(p)
		if !ok {
			keys = append(keys, strings.ToLower(p))
			continue
		}
		keys = append(keys, f.Tag.Get("mapstructure"))
		t = f.Type
	}
	return strings.Join(keys, ".")
}

// home is the user's home directory or the working directory if it's unknown
func home() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}
