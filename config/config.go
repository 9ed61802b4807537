// Package config loads simulator settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"io/ioutil"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-fssim/common"
	"github.com/mit-pdos/go-fssim/super"
)

const envVarPrefix = "FSSIM"

type Config struct {
	Image    string `envconfig:"FSSIM_IMAGE"     yaml:"image"`
	Mem      bool   `envconfig:"FSSIM_MEM"       yaml:"mem"`
	MaxBlock uint64 `envconfig:"FSSIM_MAX_BLOCK" yaml:"maxBlock"`
	MaxInode uint64 `envconfig:"FSSIM_MAX_INODE" yaml:"maxInode"`
	Debug    uint64 `envconfig:"FSSIM_DEBUG"     yaml:"debug"`
	Stats    bool   `envconfig:"FSSIM_STATS"     yaml:"stats"`
	Prompt   string `envconfig:"FSSIM_PROMPT"    yaml:"prompt"`
}

func Default() Config {
	return Config{
		Image:    "fs.img",
		MaxBlock: common.MaxBlock,
		MaxInode: common.MaxInode,
		Prompt:   "$ ",
	}
}

// Load starts from the defaults, applies the YAML file at path if path is
// non-empty, then any FSSIM_* environment variables.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

// Validate checks the geometry used when a new image is formatted.
func (c *Config) Validate() error {
	if !c.Mem && c.Image == "" {
		return fmt.Errorf("missing required configuration: image / %s_IMAGE", envVarPrefix)
	}
	if err := super.CheckGeometry(c.MaxBlock, c.MaxInode); err != nil {
		return fmt.Errorf("invalid geometry: %w", err)
	}
	return nil
}
