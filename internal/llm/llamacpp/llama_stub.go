//go:build !llama

package llamacpp

import (
	"context"

	"github.com/rs/zerolog"

	"glmchat/internal/llm"
)

// Built reports false: this binary has no llama runtime.
func Built() bool { return false }

// Backend refuses to load anything without the 'llama' build tag.
type Backend struct {
	cfg Config
	log zerolog.Logger
}

var _ llm.Backend = (*Backend)(nil)

func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

func (b *Backend) Name() string { return "llamacpp" }

var errNotBuilt = llm.ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")

func (b *Backend) LoadBase(ctx context.Context, path string) (llm.Model, error) {
	return nil, errNotBuilt
}

func (b *Backend) LoadAdapter(ctx context.Context, path string) (llm.Model, string, error) {
	// Validate the descriptor anyway so a malformed adapter is reported first.
	if _, _, _, err := lora(path); err != nil {
		return nil, "", err
	}
	return nil, "", errNotBuilt
}

func (b *Backend) LoadTokenizer(ctx context.Context, id string) (llm.Tokenizer, error) {
	return nil, errNotBuilt
}
