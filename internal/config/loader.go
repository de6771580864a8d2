package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the chat CLI.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	ModelDir string `json:"model_dir" yaml:"model_dir" toml:"model_dir"`

	// Runtime selection: auto, llama or server.
	Backend               string   `json:"backend" yaml:"backend" toml:"backend"`
	ServerURL             string   `json:"server_url" yaml:"server_url" toml:"server_url"`
	APIKey                string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	LlamaBin              string   `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin"`
	LlamaHost             string   `json:"llama_host" yaml:"llama_host" toml:"llama_host"`
	LlamaExtraArgs        []string `json:"llama_extra_args" yaml:"llama_extra_args" toml:"llama_extra_args"`
	CtxSize               int      `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads               int      `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers             int      `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`

	// Decoding. Pointers so an explicit 0 survives.
	TopP        *float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	Temperature *float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens   int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	MetricsAddr        string   `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
	MetricsCORSOrigins []string `json:"metrics_cors_origins" yaml:"metrics_cors_origins" toml:"metrics_cors_origins"`

	Banner         string `json:"banner" yaml:"banner" toml:"banner"`
	UserLabel      string `json:"user_label" yaml:"user_label" toml:"user_label"`
	AssistantLabel string `json:"assistant_label" yaml:"assistant_label" toml:"assistant_label"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
