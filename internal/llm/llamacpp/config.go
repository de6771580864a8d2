// Package llamacpp runs GGUF checkpoints in-process through go-llama.cpp.
// The real runtime needs CGO and is enabled with `-tags=llama`; default
// builds compile a stub that refuses to load.
package llamacpp

import (
	"glmchat/internal/common/fsutil"
	"glmchat/internal/llm"
)

// Config holds the settings used to initialize a model instance.
type Config struct {
	CtxSize   int
	Threads   int
	GPULayers int
	// CacheDir holds prompt caches. Empty means a temporary directory.
	CacheDir string
}

// promptCache is the continuation state: a llama.cpp prompt cache file that
// later turns reuse so the shared transcript prefix is not evaluated again.
type promptCache struct {
	path string
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// lora resolves the adapter weights and the base checkpoint for an adapter directory.
func lora(dir string) (adapter, base string, desc llm.AdapterDescriptor, err error) {
	desc, err = llm.ReadAdapterDescriptor(dir)
	if err != nil {
		return "", "", desc, err
	}
	adapter, err = llm.PrimaryWeights(dir)
	if err != nil {
		return "", "", desc, llm.ErrInvalidAdapter(dir, "no LoRA gguf: "+err.Error())
	}
	baseDir, err := fsutil.ResolvePath(desc.BaseModel)
	if err != nil {
		return "", "", desc, err
	}
	base, err = llm.PrimaryWeights(baseDir)
	if err != nil {
		return "", "", desc, err
	}
	return adapter, base, desc, nil
}
