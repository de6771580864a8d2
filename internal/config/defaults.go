package config

import (
	"os"
	"strings"
)

const (
	// EnvModelPath is the fallback for --model_dir.
	EnvModelPath = "MODEL_PATH"
	// EnvConfig is the fallback for --config.
	EnvConfig = "GLMCHAT_CONFIG"
	// EnvLogLevel is the fallback for --log-level.
	EnvLogLevel = "GLMCHAT_LOG_LEVEL"

	// DefaultModelDir is used when neither flag, environment nor config file name a model.
	DefaultModelDir = "THUDM/chatglm3-6b"

	DefaultBackend   = "auto"
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "pretty"
	DefaultMaxTokens = 2048
	DefaultTopP      = 1.0
	// Near-greedy decoding.
	DefaultTemperature = 0.01

	DefaultBanner         = "欢迎使用 ChatGLM3-6B 模型，输入内容即可进行对话，clear 清空对话历史，stop 终止程序"
	DefaultUserLabel      = "用户："
	DefaultAssistantLabel = "ChatGLM："
)

// WithDefaults returns a copy of c with unspecified fields filled in.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = DefaultBackend
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.TopP == nil {
		v := DefaultTopP
		c.TopP = &v
	}
	if c.Temperature == nil {
		v := DefaultTemperature
		c.Temperature = &v
	}
	if c.Banner == "" {
		c.Banner = DefaultBanner
	}
	if c.UserLabel == "" {
		c.UserLabel = DefaultUserLabel
	}
	if c.AssistantLabel == "" {
		c.AssistantLabel = DefaultAssistantLabel
	}
	return c
}

// ModelDirFlagDefault is the default shown for --model_dir: MODEL_PATH if
// set, otherwise DefaultModelDir.
func ModelDirFlagDefault() string {
	if v := os.Getenv(EnvModelPath); v != "" {
		return v
	}
	return DefaultModelDir
}

// ModelDir picks the model location. An explicitly set flag wins, then
// MODEL_PATH, then the config file, then DefaultModelDir.
func ModelDir(flagValue string, flagSet bool, cfg Config) string {
	if flagSet && flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(EnvModelPath); v != "" {
		return v
	}
	if cfg.ModelDir != "" {
		return cfg.ModelDir
	}
	if flagValue != "" {
		return flagValue
	}
	return DefaultModelDir
}
