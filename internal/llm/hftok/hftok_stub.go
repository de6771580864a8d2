//go:build !tokenizers

package hftok

// This stub is compiled when the 'tokenizers' build tag is NOT set, keeping
// default builds free of the Rust static library. Backends fall back to
// their native tokenizer.

// Tokenizer is never constructed in this build.
type Tokenizer struct{}

// Available reports whether this binary was built with tokenizers support.
func Available() bool { return false }

// Has always reports false without tokenizers support.
func Has(string) bool { return false }

// Load refuses to run without the 'tokenizers' build tag.
func Load(string) (*Tokenizer, error) {
	return nil, errNotBuilt
}

func (t *Tokenizer) Encode(string) ([]int, error) { return nil, errNotBuilt }

func (t *Tokenizer) Close() error { return nil }
