// Package config reads the optional YAML configuration file of the command
// line tool.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KinKir/eyegrade/pkg/classifier"
)

type SVMConfig struct {
	C     float64 `yaml:"C"`
	Gamma float64 `yaml:"gamma"`
}

type NetworkConfig struct {
	HiddenDimension int     `yaml:"hidden-dimension"`
	NumEpochs       int     `yaml:"num-epochs"`
	BatchSize       int     `yaml:"batch-size"`
	LearningRate    float64 `yaml:"learning-rate"`
	RndSeed         uint64  `yaml:"random-seed"`
}

type Config struct {
	DataDir   string        `yaml:"data-dir"`
	LogLevel  string        `yaml:"log-level"`
	LogFormat string        `yaml:"log-format"`
	SVM       SVMConfig     `yaml:"svm"`
	Network   NetworkConfig `yaml:"network"`
}

func Default() Config {
	params := classifier.DefaultParams()
	return Config{
		LogLevel:  "info",
		LogFormat: "pretty",
		SVM:       SVMConfig{C: params.C, Gamma: params.Gamma},
		Network: NetworkConfig{
			HiddenDimension: params.HiddenDimension,
			NumEpochs:       params.NumEpochs,
			BatchSize:       params.BatchSize,
			LearningRate:    params.LearningRate,
			RndSeed:         params.RndSeed,
		},
	}
}

// Load reads the configuration file at path over the defaults. An empty path
// or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Params returns the training parameters configured for both engines.
func (c Config) Params() classifier.Params {
	return classifier.Params{
		C:               c.SVM.C,
		Gamma:           c.SVM.Gamma,
		HiddenDimension: c.Network.HiddenDimension,
		NumEpochs:       c.Network.NumEpochs,
		BatchSize:       c.Network.BatchSize,
		LearningRate:    c.Network.LearningRate,
		RndSeed:         c.Network.RndSeed,
	}
}
