// Package llm defines the contract between the chat loop and the model
// runtime that loads checkpoints and streams generated text.
//
//   - types.go: Turn, History, State, Params, Step and the Model/Tokenizer/Backend interfaces.
//   - strategy.go: base vs adapter loading, selected by probing adapter_config.json.
//   - acquire.go: Acquire, the one-shot model + tokenizer load performed at startup.
//   - adapter.go: adapter descriptor parsing.
//   - weights.go: GGUF weight discovery.
//   - prompt.go: chat message rendering shared by the backends.
//   - errors.go: error types and helpers.
//
// Runtimes live in subpackages:
//
//   - llamacpp: in-process go-llama.cpp. Enabled with `-tags=llama`; a stub
//     that refuses to load is compiled otherwise.
//   - llamaserver: an OpenAI-compatible llama.cpp server, spawned on demand
//     or reached at a configured URL.
//   - hftok: HuggingFace tokenizer.json support. Enabled with `-tags=tokenizers`.
package llm
