package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	sourceYAML   = "yaml"
	sourceRSS    = "rss"
	sourceSQLite = "sqlite"
)

type config struct {
	Listen string `yaml:"listen"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Cache struct {
		TTL                time.Duration `yaml:"ttl"`
		MaxEntries         int           `yaml:"max_entries"`
		SweepInterval      time.Duration `yaml:"sweep_interval"`
		RevalidateTimeout  time.Duration `yaml:"revalidate_timeout"`
		InvalidateInterval time.Duration `yaml:"invalidate_interval"`
		DumpFile           string        `yaml:"dump_file"`
	} `yaml:"cache"`

	Source struct {
		Kind     string `yaml:"kind"`
		Path     string `yaml:"path"`
		URL      string `yaml:"url"`
		DSN      string `yaml:"dsn"`
		Platform string `yaml:"platform"`
		Location string `yaml:"location"`
	} `yaml:"source"`
}

func defaultConfig() config {
	c := config{}

	c.Listen = ":8080"
	c.Log.Level = "info"
	c.Cache.TTL = 15 * time.Minute
	c.Cache.RevalidateTimeout = 30 * time.Second
	c.Cache.InvalidateInterval = 15 * time.Second
	c.Source.Kind = sourceYAML
	c.Source.Path = "posts.yaml"

	return c
}

// loadConfig reads YAML file on top of defaults, empty file name means defaults only.
func loadConfig(fn string) (config, error) {
	c := defaultConfig()

	if fn == "" {
		return c, nil
	}

	data, err := os.ReadFile(fn)
	if err != nil {
		return c, err
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, err
	}

	return c, nil
}
