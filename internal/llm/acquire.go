package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Loaded is the result of Acquire.
type Loaded struct {
	Model     Model
	Tokenizer Tokenizer
	Strategy  Strategy
	// TokenizerSource is the path or model id the tokenizer was loaded from.
	TokenizerSource string
}

// Close releases the model and, when it holds native resources, the
// tokenizer.
func (l *Loaded) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	if c, ok := l.Tokenizer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if l.Model != nil {
		errs = append(errs, l.Model.Close())
	}
	return errors.Join(errs...)
}

// Acquire loads the model at path using the strategy DetectStrategy picks,
// then loads the matching tokenizer. It is called once at startup; nothing
// is retried.
func Acquire(ctx context.Context, b Backend, path string) (*Loaded, error) {
	strategy := DetectStrategy(path)
	m, source, err := loaderFor(strategy).load(ctx, b, path)
	if err != nil {
		return nil, fmt.Errorf("load %s model from %s (%s backend): %w", strategy, path, b.Name(), err)
	}
	tok, err := b.LoadTokenizer(ctx, source)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("load tokenizer from %s: %w", source, err)
	}
	return &Loaded{Model: m, Tokenizer: tok, Strategy: strategy, TokenizerSource: source}, nil
}
