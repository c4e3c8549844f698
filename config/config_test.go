package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	c := Default()

	if c.Nuclease != "SpCas9" {
		t.Errorf("Nuclease = %v, want SpCas9", c.Nuclease)
	}
	if c.Filter.GCMin != 0.40 || c.Filter.GCMax != 0.70 || c.Filter.GCIdeal != 0.55 {
		t.Errorf("Filter GC = %v/%v/%v", c.Filter.GCMin, c.Filter.GCIdeal, c.Filter.GCMax)
	}
	if c.Filter.HomopolymerRun != 4 || c.Filter.MaxRepeat != 4 || c.Filter.SelfCompMax != 0 {
		t.Errorf("Filter runs = %+v", c.Filter)
	}
	if c.Score.MinEfficiency != 0.3 || c.Score.SelfCompMinRun != 4 {
		t.Errorf("Score = %+v", c.Score)
	}
	if c.OffTarget.MaxMismatches != 4 {
		t.Errorf("OffTarget.MaxMismatches = %v, want 4", c.OffTarget.MaxMismatches)
	}
	if c.Log.Level != "info" || c.Log.Format != "console" || c.Serve.Addr != ":8080" {
		t.Errorf("Log = %+v, Serve = %+v", c.Log, c.Serve)
	}
	if c.NucleaseDB != NucleaseDBFile {
		t.Errorf("NucleaseDB = %v, want %v", c.NucleaseDB, NucleaseDBFile)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		set         map[string]interface{}
		wantErr     bool
		wantInError string
	}{
		{
			"defaults",
			nil,
			false,
			"",
		},
		{
			"narrower GC window",
			map[string]interface{}{"filter.gc-min": 0.45, "filter.gc-max": 0.60},
			false,
			"",
		},
		{
			"GC max below min",
			map[string]interface{}{"filter.gc-min": 0.6, "filter.gc-max": 0.5},
			true,
			"filter.gc-max",
		},
		{
			"GC ideal outside the window",
			map[string]interface{}{"filter.gc-ideal": 0.8},
			true,
			"filter.gc-ideal",
		},
		{
			"negative mismatches",
			map[string]interface{}{"offtarget.max-mismatches": -1},
			true,
			"offtarget.max-mismatches",
		},
		{
			"negative workers",
			map[string]interface{}{"workers": -2},
			true,
			"workers",
		},
		{
			"unknown log format",
			map[string]interface{}{"log.format": "xml"},
			true,
			"log.format",
		},
		{
			"no nuclease",
			map[string]interface{}{"nuclease": ""},
			true,
			"nuclease",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			for k, val := range tt.set {
				v.Set(k, val)
			}

			c, err := Load(v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), tt.wantInError) {
					t.Errorf("Load() error = %v, want it to name %s", err, tt.wantInError)
				}
				return
			}
			if c == nil {
				t.Fatal("Load() = nil")
			}
		})
	}
}

func TestSetEnv(t *testing.T) {
	t.Setenv("KSITES_NUCLEASE", "Cas12a")
	t.Setenv("KSITES_FILTER_GC_MIN", "0.35")

	v := viper.New()
	SetDefaults(v)
	SetEnv(v)

	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Nuclease != "Cas12a" {
		t.Errorf("Nuclease = %v, want Cas12a", c.Nuclease)
	}
	if c.Filter.GCMin != 0.35 {
		t.Errorf("Filter.GCMin = %v, want 0.35", c.Filter.GCMin)
	}
}

func TestConfig_Settings(t *testing.T) {
	c := Default()
	c.Filter.SelfCompMax = 6
	c.OffTarget.MaxMismatches = 3
	c.Workers = 2

	s := c.Settings()
	if s.Quality.GCMin != 0.40 || s.Quality.GCMax != 0.70 || s.Quality.SelfCompMax != 6 {
		t.Errorf("Quality = %+v", s.Quality)
	}
	if s.Efficiency.GCIdeal != 0.55 || s.Efficiency.SelfCompMinRun != 4 {
		t.Errorf("Efficiency = %+v", s.Efficiency)
	}
	if s.MaxMismatches != 3 {
		t.Errorf("MaxMismatches = %v, want 3", s.MaxMismatches)
	}
	if s.Workers != 2 {
		t.Errorf("Workers = %v, want 2", s.Workers)
	}
}
