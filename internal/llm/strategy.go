package llm

import (
	"context"
	"path/filepath"

	"glmchat/internal/common/fsutil"
)

// AdapterConfigFile marks a directory as a PEFT adapter rather than a full checkpoint.
const AdapterConfigFile = "adapter_config.json"

// Strategy selects how a model directory is loaded.
type Strategy int

const (
	// StrategyBase loads a full checkpoint; the tokenizer comes from the same path.
	StrategyBase Strategy = iota
	// StrategyAdapter loads an adapter over its base checkpoint; the tokenizer
	// comes from the base model.
	StrategyAdapter
)

func (s Strategy) String() string {
	switch s {
	case StrategyBase:
		return "base"
	case StrategyAdapter:
		return "adapter"
	default:
		return "unknown"
	}
}

// DetectStrategy returns StrategyAdapter when dir holds an adapter descriptor.
func DetectStrategy(dir string) Strategy {
	if fsutil.FileExists(filepath.Join(dir, AdapterConfigFile)) {
		return StrategyAdapter
	}
	return StrategyBase
}

// loader loads a model and reports where its tokenizer lives.
type loader interface {
	load(ctx context.Context, b Backend, path string) (Model, string, error)
}

type baseLoader struct{}

func (baseLoader) load(ctx context.Context, b Backend, path string) (Model, string, error) {
	m, err := b.LoadBase(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return m, path, nil
}

type adapterLoader struct{}

func (adapterLoader) load(ctx context.Context, b Backend, path string) (Model, string, error) {
	return b.LoadAdapter(ctx, path)
}

func loaderFor(s Strategy) loader {
	if s == StrategyAdapter {
		return adapterLoader{}
	}
	return baseLoader{}
}
