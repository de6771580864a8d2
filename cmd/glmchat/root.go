package main

import (
	"os"

	"github.com/spf13/cobra"

	"glmchat/internal/config"
)

// options are the command-line overrides. Empty means "take it from the
// config file or the defaults".
type options struct {
	modelDir    string
	configPath  string
	backend     string
	serverURL   string
	logLevel    string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "glmchat",
		Short:         "Chat with a ChatGLM3 checkpoint or fine-tuned adapter in the terminal",
		Long:          "Loads a checkpoint (or a PEFT adapter over its base model) and streams answers.\nType 'clear' to reset the conversation and 'stop' to quit.",
		Example:       "  glmchat --model_dir ~/models/chatglm3-6b-gguf\n  MODEL_PATH=./output/adapter glmchat --backend server\n  glmchat --server-url http://127.0.0.1:8081 --config glmchat.yaml",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	f := root.Flags()
	f.StringVar(&opts.modelDir, "model_dir", config.ModelDirFlagDefault(), "Checkpoint or adapter directory (defaults MODEL_PATH or "+config.DefaultModelDir+")")
	f.StringVar(&opts.configPath, "config", os.Getenv(config.EnvConfig), "Config file: .yaml|.json|.toml (defaults GLMCHAT_CONFIG)")
	f.StringVar(&opts.backend, "backend", "", "Model runtime: auto|llama|server (default auto)")
	f.StringVar(&opts.serverURL, "server-url", "", "Use a running llama-server instead of spawning one")
	f.StringVar(&opts.logLevel, "log-level", os.Getenv(config.EnvLogLevel), "Log level: debug|info|warn|error (defaults GLMCHAT_LOG_LEVEL or warn)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	return root
}

// applyFlags overlays explicit command-line values onto cfg.
func applyFlags(cfg *config.Config, opts *options) {
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.serverURL != "" {
		cfg.ServerURL = opts.serverURL
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
}
