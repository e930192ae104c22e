// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Environment string         `yaml:"environment" validate:"required,oneof=production development"`
	Storage     StorageConfig  `yaml:"storage"     validate:"required"`
	NATS        NATSConfig     `yaml:"nats"`
	Engine      EngineConfig   `yaml:"engine"      validate:"required"`
	Operator    OperatorConfig `yaml:"operator"`
}

type StorageConfig struct {
	Directory string `yaml:"directory" validate:"required"`
	Prefix    string `yaml:"prefix"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type EngineConfig struct {
	HouseEdgeBps int64 `yaml:"house_edge_bps" validate:"min=0,max=9999"`
	MinBet       int64 `yaml:"min_bet"        validate:"min=0"`
	MaxBet       int64 `yaml:"max_bet"        validate:"required,gtfield=MinBet"`

	OddsWindowRounds    uint64 `yaml:"odds_window_rounds"    validate:"required"`
	BettingWindowRounds uint64 `yaml:"betting_window_rounds" validate:"required"`
	SettleDelayRounds   uint64 `yaml:"settle_delay_rounds"`
	CooldownRounds      uint64 `yaml:"cooldown_rounds"`

	HouseOwner  string        `yaml:"house_owner" validate:"required"`
	Operator    string        `yaml:"operator"    validate:"required"`
	HouseRoster []RacerConfig `yaml:"house_roster" validate:"len=6,dive"`
}

type RacerConfig struct {
	ID string `yaml:"id" validate:"required"`
	A  int    `yaml:"a"  validate:"min=1,max=10"`
	B  int    `yaml:"b"  validate:"min=1,max=10"`
	C  int    `yaml:"c"  validate:"min=1,max=10"`
}

type OperatorConfig struct {
	RoundInterval    time.Duration `yaml:"round_interval"`
	MonteCarloTrials int           `yaml:"monte_carlo_trials"`
	BeaconSecret     string        `yaml:"beacon_secret"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Defaults.
	if cfg.Engine.SettleDelayRounds == 0 {
		cfg.Engine.SettleDelayRounds = 1
	}
	if cfg.Operator.RoundInterval == 0 {
		cfg.Operator.RoundInterval = 2 * time.Second
	}
	if cfg.Operator.MonteCarloTrials == 0 {
		cfg.Operator.MonteCarloTrials = 256
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
