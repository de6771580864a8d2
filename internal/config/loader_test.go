package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "model_dir: /models/glm\nbackend: server\nserver_url: http://127.0.0.1:8080\nctx_size: 4096\ntop_p: 0.8\ntemperature: 0\nmetrics_cors_origins:\n  - http://localhost:3000\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelDir != "/models/glm" || cfg.Backend != "server" || cfg.ServerURL != "http://127.0.0.1:8080" || cfg.CtxSize != 4096 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.TopP == nil || *cfg.TopP != 0.8 {
		t.Fatalf("unexpected top_p: %v", cfg.TopP)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("explicit zero temperature lost: %v", cfg.Temperature)
	}
	if len(cfg.MetricsCORSOrigins) != 1 || cfg.MetricsCORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %v", cfg.MetricsCORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"model_dir":"/m","backend":"llama","threads":8,"max_tokens":512,"user_label":"You: "}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelDir != "/m" || cfg.Backend != "llama" || cfg.Threads != 8 || cfg.MaxTokens != 512 || cfg.UserLabel != "You: " {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "model_dir=\"/x\"\ngpu_layers=99\nlog_level=\"debug\"\nllama_extra_args=[\"--flash-attn\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelDir != "/x" || cfg.GPULayers != 99 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.LlamaExtraArgs) != 1 || cfg.LlamaExtraArgs[0] != "--flash-attn" {
		t.Fatalf("unexpected extra args: %v", cfg.LlamaExtraArgs)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	bad := map[string]string{
		"bad.yaml": "model_dir: /m\n: broken\n",
		"bad.json": `{ "model_dir": }`,
		"bad.toml": "model_dir=\nbackend\n",
	}
	for name, content := range bad {
		p := writeTempFile(t, d, name, content)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}
