package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"glmchat/internal/common/fsutil"
)

// FindWeights returns the GGUF files for path. A .gguf file is returned as
// is; a directory is scanned (non-recursively) and its *.gguf files are
// returned sorted by name.
func FindWeights(path string) ([]string, error) {
	base, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		if !isGGUF(abs) {
			return nil, fmt.Errorf("not a gguf file: %s", abs)
		}
		return []string{abs}, nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isGGUF(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(abs, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .gguf files in %s", abs)
	}
	sort.Strings(files)
	return files, nil
}

// PrimaryWeights returns the first GGUF file for path. Split checkpoints
// (model-00001-of-00003.gguf) sort their first shard first.
func PrimaryWeights(path string) (string, error) {
	files, err := FindWeights(path)
	if err != nil {
		return "", err
	}
	return files[0], nil
}

func isGGUF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gguf")
}
