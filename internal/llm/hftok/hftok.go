//go:build tokenizers

package hftok

import (
	"path/filepath"

	"github.com/daulet/tokenizers"

	"glmchat/internal/common/fsutil"
)

// Tokenizer wraps a HuggingFace tokenizer.json loaded through the Rust
// tokenizers library.
type Tokenizer struct {
	tk *tokenizers.Tokenizer
}

// Available reports whether this binary was built with tokenizers support.
func Available() bool { return true }

// Has reports whether dir carries a tokenizer.json this package can load.
func Has(dir string) bool {
	return fsutil.FileExists(filepath.Join(dir, FileName))
}

// Load opens dir/tokenizer.json.
func Load(dir string) (*Tokenizer, error) {
	tk, err := tokenizers.FromFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	return &Tokenizer{tk: tk}, nil
}

// Encode returns token ids for text, special tokens included.
func (t *Tokenizer) Encode(text string) ([]int, error) {
	ids, _ := t.tk.Encode(text, true)
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out, nil
}

// Close frees the native tokenizer.
func (t *Tokenizer) Close() error {
	if t.tk == nil {
		return nil
	}
	err := t.tk.Close()
	t.tk = nil
	return err
}
