package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"glmchat/internal/chat"
	"glmchat/internal/common/fsutil"
	"glmchat/internal/config"
	"glmchat/internal/llm"
	"glmchat/internal/llm/hftok"
	"glmchat/internal/llm/llamacpp"
	"glmchat/internal/llm/llamaserver"
	"glmchat/internal/metrics"
)

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	applyFlags(&cfg, opts)
	cfg = cfg.WithDefaults()

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	modelDir, err := fsutil.ResolvePath(config.ModelDir(opts.modelDir, cmd.Flags().Changed("model_dir"), cfg))
	if err != nil {
		return fmt.Errorf("resolve model path: %w", err)
	}
	backend, err := newBackend(cfg, log)
	if err != nil {
		return err
	}
	log.Info().
		Str("model_dir", modelDir).
		Str("backend", backend.Name()).
		Str("strategy", llm.DetectStrategy(modelDir).String()).
		Bool("hf_tokenizer", hftok.Available()).
		Msg("starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		ms, err := metrics.Start(cfg.MetricsAddr, cfg.MetricsCORSOrigins, log)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := ms.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("metrics shutdown")
			}
		}()
	}

	stop := &chat.StopSignal{}
	go handleSignals(ctx, cancel, stop, log)

	loaded, err := acquire(ctx, backend, modelDir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := loaded.Close(); err != nil {
			log.Warn().Err(err).Msg("close model")
		}
	}()
	log.Info().Str("strategy", loaded.Strategy.String()).Str("tokenizer", loaded.TokenizerSource).Msg("model ready")

	out := cmd.OutOrStdout()
	loop := &chat.Loop{
		Model:          loaded.Model,
		Tokenizer:      loaded.Tokenizer,
		Params:         params(cfg),
		In:             cmd.InOrStdin(),
		Out:            out,
		Stop:           stop,
		Banner:         cfg.Banner,
		UserLabel:      cfg.UserLabel,
		AssistantLabel: cfg.AssistantLabel,
		Log:            log,
	}
	if f, ok := out.(*os.File); ok {
		loop.Clear = chat.ScreenClearer(f)
	}
	return loop.Run(ctx)
}

func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	var l zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		l = zerolog.New(w)
	case "pretty", "console", "":
		l = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly})
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (want pretty or json)", format)
	}
	return l.Level(lvl).With().Timestamp().Logger(), nil
}

// newBackend picks the model runtime. auto prefers the in-process runtime
// when it is compiled in and no server URL is configured.
func newBackend(cfg config.Config, log zerolog.Logger) (llm.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "auto":
		if llamacpp.Built() && cfg.ServerURL == "" {
			return newLlamaCPP(cfg, log), nil
		}
		return newLlamaServer(cfg, log), nil
	case "llama", "llamacpp":
		return newLlamaCPP(cfg, log), nil
	case "server", "llamaserver":
		return newLlamaServer(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want auto, llama or server)", cfg.Backend)
	}
}

func newLlamaCPP(cfg config.Config, log zerolog.Logger) llm.Backend {
	return llamacpp.New(llamacpp.Config{
		CtxSize:   cfg.CtxSize,
		Threads:   cfg.Threads,
		GPULayers: cfg.GPULayers,
	}, log)
}

func newLlamaServer(cfg config.Config, log zerolog.Logger) llm.Backend {
	return llamaserver.New(llamaserver.Config{
		BaseURL:        cfg.ServerURL,
		APIKey:         cfg.APIKey,
		Bin:            cfg.LlamaBin,
		Host:           cfg.LlamaHost,
		CtxSize:        cfg.CtxSize,
		Threads:        cfg.Threads,
		GPULayers:      cfg.GPULayers,
		ExtraArgs:      cfg.LlamaExtraArgs,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}, log)
}

func params(cfg config.Config) llm.Params {
	p := llm.DefaultParams()
	if cfg.TopP != nil {
		p.TopP = float32(*cfg.TopP)
	}
	if cfg.Temperature != nil {
		p.Temperature = float32(*cfg.Temperature)
	}
	if cfg.MaxTokens > 0 {
		p.MaxTokens = cfg.MaxTokens
	}
	return p
}

// acquire loads model and tokenizer, showing a spinner on an interactive
// stderr, and records the load time.
func acquire(ctx context.Context, b llm.Backend, modelDir string, progress io.Writer) (*llm.Loaded, error) {
	start := time.Now()
	done := make(chan struct{})
	finished := make(chan struct{})
	if f, ok := progress.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(f),
			progressbar.OptionSetDescription("loading "+modelDir),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		go func() {
			defer close(finished)
			t := time.NewTicker(100 * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-done:
					_ = bar.Finish()
					return
				case <-t.C:
					_ = bar.Add(1)
				}
			}
		}()
	} else {
		close(finished)
	}

	loaded, err := llm.Acquire(ctx, b, modelDir)
	close(done)
	<-finished
	if err != nil {
		return nil, err
	}
	metrics.ObserveModelLoad(loaded.Strategy.String(), b.Name(), time.Since(start))
	return loaded, nil
}

// handleSignals maps SIGINT to the stop signal while a response streams.
// SIGINT at the prompt and SIGTERM cancel ctx, which ends the session.
func handleSignals(ctx context.Context, cancel context.CancelFunc, stop *chat.StopSignal, log zerolog.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			if sig == os.Interrupt && stop.Streaming() {
				log.Debug().Msg("interrupt: stopping response")
				stop.Request()
				continue
			}
			log.Debug().Str("signal", sig.String()).Msg("shutting down")
			cancel()
			return
		}
	}
}
