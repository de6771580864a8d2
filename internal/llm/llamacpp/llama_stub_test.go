//go:build !llama

package llamacpp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"glmchat/internal/llm"
)

func TestStub_RefusesToLoad(t *testing.T) {
	if Built() {
		t.Fatalf("stub reports built")
	}
	b := New(Config{}, zerolog.Nop())
	if _, err := b.LoadBase(context.Background(), t.TempDir()); !llm.IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if _, err := b.LoadTokenizer(context.Background(), "x"); !llm.IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}

func TestStub_AdapterValidatedFirst(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, llm.AdapterConfigFile), []byte(`{"peft_type":"LORA"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := New(Config{}, zerolog.Nop())
	if _, _, err := b.LoadAdapter(context.Background(), dir); !llm.IsInvalidAdapter(err) {
		t.Fatalf("expected invalid adapter, got %v", err)
	}
}

func TestLora_ResolvesBaseWeights(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "base")
	adapter := filepath.Join(root, "adapter")
	for _, d := range []string{base, adapter} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	for _, f := range []string{filepath.Join(base, "glm-q4.gguf"), filepath.Join(adapter, "lora.gguf")} {
		if err := os.WriteFile(f, nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	cfg := `{"base_model_name_or_path":"` + base + `","peft_type":"LORA","r":8}`
	if err := os.WriteFile(filepath.Join(adapter, llm.AdapterConfigFile), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a, w, desc, err := lora(adapter)
	if err != nil {
		t.Fatalf("lora: %v", err)
	}
	if filepath.Base(a) != "lora.gguf" || filepath.Base(w) != "glm-q4.gguf" || desc.Rank != 8 {
		t.Fatalf("got adapter=%s base=%s desc=%+v", a, w, desc)
	}
}
