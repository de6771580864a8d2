package llamaserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"glmchat/internal/common/fsutil"
	"glmchat/internal/llm"
	"glmchat/internal/llm/hftok"
)

// Config controls how the backend reaches llama-server.
type Config struct {
	// BaseURL of a running server. Empty means spawn one per loaded model.
	BaseURL string
	APIKey  string

	// Spawn settings.
	Bin       string
	Host      string
	CtxSize   int
	Threads   int
	GPULayers int
	ExtraArgs []string

	// RequestTimeout bounds one streamed response. Zero disables it.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	// ReadyTimeout bounds the wait for a spawned server to answer.
	ReadyTimeout time.Duration
}

// Backend implements llm.Backend on top of llama.cpp's llama-server.
type Backend struct {
	cfg        Config
	log        zerolog.Logger
	httpClient *http.Client

	mu  sync.Mutex
	srv *server // server of the last loaded model; the tokenizer talks to it
}

var _ llm.Backend = (*Backend)(nil)

// New constructs a server-backed runtime.
func New(cfg Config, log zerolog.Logger) *Backend {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: streamed responses are bounded by context only.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &Backend{
		cfg:        cfg,
		log:        log.With().Str("component", "llamaserver").Logger(),
		httpClient: cli,
	}
}

func (b *Backend) Name() string { return "llamaserver" }

// LoadBase serves the GGUF weights found at path.
func (b *Backend) LoadBase(ctx context.Context, path string) (llm.Model, error) {
	srv, err := b.serve(ctx, path, "")
	if err != nil {
		return nil, err
	}
	return b.newModel(srv, path), nil
}

// LoadAdapter serves the adapter's base weights with the LoRA GGUF found in
// path applied. The base model identifier comes from adapter_config.json.
func (b *Backend) LoadAdapter(ctx context.Context, path string) (llm.Model, string, error) {
	desc, err := llm.ReadAdapterDescriptor(path)
	if err != nil {
		return nil, "", err
	}
	b.log.Info().Str("adapter", path).Str("base_model", desc.BaseModel).Str("peft_type", desc.PeftType).Int("rank", desc.Rank).Msg("loading adapter")
	if b.cfg.BaseURL != "" {
		// A remote server was started with its adapters already attached.
		srv, err := b.serve(ctx, path, "")
		if err != nil {
			return nil, "", err
		}
		return b.newModel(srv, path), desc.BaseModel, nil
	}
	lora, err := llm.PrimaryWeights(path)
	if err != nil {
		return nil, "", llm.ErrInvalidAdapter(path, "no LoRA gguf: "+err.Error())
	}
	basePath, err := fsutil.ResolvePath(desc.BaseModel)
	if err != nil {
		return nil, "", err
	}
	srv, err := b.serve(ctx, basePath, lora)
	if err != nil {
		return nil, "", err
	}
	return b.newModel(srv, path), desc.BaseModel, nil
}

// LoadTokenizer prefers a tokenizer.json next to the model and otherwise
// asks the running server to tokenize.
func (b *Backend) LoadTokenizer(ctx context.Context, id string) (llm.Tokenizer, error) {
	if hftok.Has(id) {
		tk, err := hftok.Load(id)
		if err != nil {
			return nil, err
		}
		return tk, nil
	}
	b.mu.Lock()
	srv := b.srv
	b.mu.Unlock()
	if srv == nil {
		return nil, fmt.Errorf("no server loaded to tokenize for %s", id)
	}
	return &serverTokenizer{b: b, baseURL: srv.baseURL}, nil
}

// serve returns a ready server for the weights at path, spawning one unless
// BaseURL is configured.
func (b *Backend) serve(ctx context.Context, path, lora string) (*server, error) {
	var (
		srv *server
		err error
	)
	if b.cfg.BaseURL != "" {
		srv = &server{baseURL: strings.TrimRight(b.cfg.BaseURL, "/")}
		hctx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
		err = b.checkHealth(hctx, srv.baseURL)
		cancel()
		if err != nil {
			return nil, llm.ErrDependencyUnavailable(fmt.Sprintf("llama-server not reachable at %s: %v", srv.baseURL, err))
		}
		b.log.Info().Str("url", srv.baseURL).Msg("using running llama-server")
	} else {
		weights, werr := llm.PrimaryWeights(path)
		if werr != nil {
			return nil, werr
		}
		srv, err = b.spawn(ctx, weights, lora)
		if err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	b.srv = srv
	b.mu.Unlock()
	return srv, nil
}

func (b *Backend) newModel(srv *server, path string) *model {
	return &model{
		b:       b,
		srv:     srv,
		modelID: path,
		log:     b.log.With().Str("model", path).Logger(),
	}
}

// checkHealth reports whether the server answers /v1/models.
func (b *Backend) checkHealth(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	b.authorize(req)
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (b *Backend) authorize(req *http.Request) {
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
}
