// Package hftok loads HuggingFace tokenizer.json files. The real
// implementation needs libtokenizers and is enabled with `-tags=tokenizers`.
package hftok

import "glmchat/internal/llm"

// FileName is the tokenizer file looked up in a model directory.
const FileName = "tokenizer.json"

var errNotBuilt = llm.ErrDependencyUnavailable("tokenizer.json support not built (missing 'tokenizers' build tag)")

var _ llm.Tokenizer = (*Tokenizer)(nil)
