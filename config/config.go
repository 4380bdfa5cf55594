package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/novabehavior/abacore/core/analytics"
	"github.com/novabehavior/abacore/core/metrics"
	"github.com/novabehavior/abacore/core/recovery"
	"github.com/novabehavior/abacore/core/schedule"
)

type Config struct {
	Schedule  schedule.Config  `json:"schedule"`
	Recovery  recovery.Config  `json:"recovery"`
	Analytics analytics.Config `json:"analytics"`
	Metrics   metrics.Config   `json:"metrics"`
	Notify    NotifyConfig     `json:"notify"`
	Audit     AuditConfig      `json:"audit"`
	API       APIConfig        `json:"api"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("ABA_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "aba_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Schedule.SetDefaults()
	cfg.Recovery.SetDefaults()
	cfg.Analytics.SetDefaults()
	cfg.Notify.SetDefaults()
	cfg.Audit.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Recovery.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Analytics.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Notify.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
