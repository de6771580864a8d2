//go:build llama

package llamacpp

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"glmchat/internal/llm"
	"glmchat/internal/llm/hftok"
)

// Built indicates this binary was compiled with real llama support.
func Built() bool { return true }

// Backend implements llm.Backend with an in-process llama.cpp.
type Backend struct {
	cfg Config
	log zerolog.Logger

	mu   sync.Mutex
	last *model // the tokenizer falls back to the last loaded model's vocabulary
}

var _ llm.Backend = (*Backend)(nil)

func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log.With().Str("component", "llamacpp").Logger()}
}

func (b *Backend) Name() string { return "llamacpp" }

func (b *Backend) LoadBase(ctx context.Context, path string) (llm.Model, error) {
	weights, err := llm.PrimaryWeights(path)
	if err != nil {
		return nil, err
	}
	return b.load(ctx, weights, "")
}

// LoadAdapter applies the LoRA GGUF in path to the base checkpoint named by
// its adapter_config.json.
func (b *Backend) LoadAdapter(ctx context.Context, path string) (llm.Model, string, error) {
	adapter, base, desc, err := lora(path)
	if err != nil {
		return nil, "", err
	}
	b.log.Info().Str("adapter", adapter).Str("base", base).Str("peft_type", desc.PeftType).Int("rank", desc.Rank).Msg("loading adapter")
	m, err := b.load(ctx, base, adapter)
	if err != nil {
		return nil, "", err
	}
	return m, desc.BaseModel, nil
}

// LoadTokenizer prefers tokenizer.json and otherwise tokenizes with the
// vocabulary embedded in the last loaded GGUF.
func (b *Backend) LoadTokenizer(ctx context.Context, id string) (llm.Tokenizer, error) {
	if hftok.Has(id) {
		tk, err := hftok.Load(id)
		if err != nil {
			return nil, err
		}
		return tk, nil
	}
	b.mu.Lock()
	m := b.last
	b.mu.Unlock()
	if m == nil {
		return nil, fmt.Errorf("no model loaded to tokenize for %s", id)
	}
	return ggufTokenizer{m: m}, nil
}

func (b *Backend) load(ctx context.Context, weights, adapter string) (*model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{
		llama.SetContext(zn(b.cfg.CtxSize, 8192)),
	}
	if b.cfg.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(b.cfg.GPULayers))
	}
	if adapter != "" {
		mo = append(mo, llama.SetLoraAdapter(adapter), llama.SetLoraBase(weights))
	}
	lm, err := llama.New(weights, mo...)
	if err != nil {
		return nil, err
	}
	cacheDir := b.cfg.CacheDir
	owned := false
	if cacheDir == "" {
		cacheDir, err = os.MkdirTemp("", "glmchat-cache-")
		if err != nil {
			lm.Free()
			return nil, err
		}
		owned = true
	}
	m := &model{
		b:         b,
		lm:        lm,
		cacheDir:  cacheDir,
		ownsCache: owned,
		log:       b.log.With().Str("weights", filepath.Base(weights)).Logger(),
	}
	b.mu.Lock()
	b.last = m
	b.mu.Unlock()
	m.log.Info().Str("lora", adapter).Msg("model loaded")
	return m, nil
}

// model owns one llama.cpp context. Predict calls are serialized.
type model struct {
	b         *Backend
	lm        *llama.LLama
	cacheDir  string
	ownsCache bool
	log       zerolog.Logger

	mu sync.Mutex
}

func (m *model) cacheFor(state llm.State) string {
	if c, ok := state.Value().(promptCache); ok && c.path != "" {
		return c.path
	}
	return filepath.Join(m.cacheDir, uuid.NewString()+".cache")
}

func (m *model) StreamChat(ctx context.Context, tok llm.Tokenizer, query string, history llm.History, params llm.Params, state llm.State) iter.Seq2[llm.Step, error] {
	return func(yield func(llm.Step, error) bool) {
		prompt := llm.RenderPrompt(history, query)
		// Encode before locking: the tokenizer may share this model.
		if tok != nil && m.log.GetLevel() <= zerolog.DebugLevel {
			if ids, err := tok.Encode(prompt); err == nil {
				m.log.Debug().Int("prompt_tokens", len(ids)).Int("turns", len(history)).Msg("chat request")
			}
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.lm == nil {
			yield(llm.Step{}, errors.New("llama model not initialized"))
			return
		}
		cache := m.cacheFor(state)
		po := []llama.PredictOption{
			llama.SetTokens(max(1, params.MaxTokens)),
			llama.SetThreads(max(1, m.b.cfg.Threads)),
			llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
			llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
			llama.SetStopWords(llm.StopWords...),
		}
		if params.ReturnState {
			po = append(po, llama.SetPathPromptCache(cache), llama.EnablePromptCacheAll)
		}

		var (
			text    strings.Builder
			stopped bool
		)
		// Token callbacks run on this goroutine while Predict blocks.
		m.lm.SetTokenCallback(func(piece string) bool {
			if stopped || ctx.Err() != nil {
				return false
			}
			text.WriteString(piece)
			out := text.String()
			for _, sw := range llm.StopWords {
				if i := strings.Index(out, sw); i >= 0 {
					out = out[:i]
					stopped = true
				}
			}
			if stopped {
				return false
			}
			step := llm.Step{
				Text:    out,
				History: history.With(llm.Turn{Query: query, Response: out}),
				State:   llm.EmptyState,
			}
			if params.ReturnState {
				step.State = llm.NewState(promptCache{path: cache})
			}
			if !yield(step, nil) {
				stopped = true
				return false
			}
			return true
		})
		defer m.lm.SetTokenCallback(nil)

		if _, err := m.lm.Predict(prompt, po...); err != nil && !stopped {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			yield(llm.Step{}, err)
		}
	}
}

func (m *model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lm != nil {
		m.lm.Free()
		m.lm = nil
	}
	if m.ownsCache {
		return os.RemoveAll(m.cacheDir)
	}
	return nil
}

// ggufTokenizer tokenizes with the vocabulary embedded in the weights.
type ggufTokenizer struct {
	m *model
}

func (t ggufTokenizer) Encode(text string) ([]int, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.m.lm == nil {
		return nil, errors.New("llama model not initialized")
	}
	_, ids, err := t.m.lm.TokenizeString(text)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out, nil
}
