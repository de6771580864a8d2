package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// AdapterDescriptor is the subset of a PEFT adapter_config.json the loaders use.
type AdapterDescriptor struct {
	BaseModel     string   `json:"base_model_name_or_path"`
	PeftType      string   `json:"peft_type"`
	TaskType      string   `json:"task_type"`
	Rank          int      `json:"r"`
	Alpha         float64  `json:"lora_alpha"`
	Dropout       float64  `json:"lora_dropout"`
	TargetModules []string `json:"-"`
	InferenceMode bool     `json:"inference_mode"`
}

// ReadAdapterDescriptor parses dir/adapter_config.json.
func ReadAdapterDescriptor(dir string) (AdapterDescriptor, error) {
	var d AdapterDescriptor
	b, err := os.ReadFile(filepath.Join(dir, AdapterConfigFile))
	if err != nil {
		return d, fmt.Errorf("read adapter config: %w", err)
	}
	var raw struct {
		AdapterDescriptor
		// target_modules is a list or a single regex string depending on the writer.
		TargetModules json.RawMessage `json:"target_modules"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return d, ErrInvalidAdapter(dir, err.Error())
	}
	d = raw.AdapterDescriptor
	d.TargetModules = parseTargetModules(raw.TargetModules)
	d.BaseModel = strings.TrimSpace(d.BaseModel)
	if d.BaseModel == "" {
		return d, ErrInvalidAdapter(dir, "base_model_name_or_path is empty")
	}
	return d, nil
}

func parseTargetModules(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}
