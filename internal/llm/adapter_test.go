package llm

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAdapterConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, AdapterConfigFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir
}

func TestReadAdapterDescriptor(t *testing.T) {
	dir := writeAdapterConfig(t, `{
		"base_model_name_or_path": " /models/chatglm3-6b ",
		"peft_type": "LORA",
		"task_type": "CAUSAL_LM",
		"r": 8,
		"lora_alpha": 32,
		"lora_dropout": 0.1,
		"target_modules": ["query_key_value"],
		"inference_mode": true
	}`)
	d, err := ReadAdapterDescriptor(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if d.BaseModel != "/models/chatglm3-6b" {
		t.Fatalf("base model: %q", d.BaseModel)
	}
	if d.PeftType != "LORA" || d.TaskType != "CAUSAL_LM" || d.Rank != 8 || d.Alpha != 32 || !d.InferenceMode {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if len(d.TargetModules) != 1 || d.TargetModules[0] != "query_key_value" {
		t.Fatalf("target modules: %v", d.TargetModules)
	}
}

func TestReadAdapterDescriptor_TargetModulesString(t *testing.T) {
	dir := writeAdapterConfig(t, `{"base_model_name_or_path":"b","target_modules":".*attn.*"}`)
	d, err := ReadAdapterDescriptor(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(d.TargetModules) != 1 || d.TargetModules[0] != ".*attn.*" {
		t.Fatalf("target modules: %v", d.TargetModules)
	}
}

func TestReadAdapterDescriptor_Errors(t *testing.T) {
	if _, err := ReadAdapterDescriptor(t.TempDir()); err == nil || IsInvalidAdapter(err) {
		t.Fatalf("missing file should be a read error, got %v", err)
	}
	for name, content := range map[string]string{
		"malformed":  `{"base_model_name_or_path":`,
		"no base":    `{"peft_type":"LORA"}`,
		"blank base": `{"base_model_name_or_path":"  "}`,
	} {
		dir := writeAdapterConfig(t, content)
		_, err := ReadAdapterDescriptor(dir)
		if !IsInvalidAdapter(err) {
			t.Fatalf("%s: expected invalid adapter error, got %v", name, err)
		}
	}
}
