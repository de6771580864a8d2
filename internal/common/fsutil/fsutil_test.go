package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	// os.UserHomeDir reads USERPROFILE on windows and HOME elsewhere.
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	return home
}

func TestExpandHome(t *testing.T) {
	home := setHome(t)
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	exp, err := ExpandHome("~/models")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if filepath.Base(exp) != "models" {
		t.Fatalf("unexpected expanded path: %q", exp)
	}
}

func TestPathAndFileExists(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "adapter_config.json")
	if err := os.WriteFile(f, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !PathExists(dir) || !PathExists(f) {
		t.Fatalf("expected both paths to exist")
	}
	if PathExists(filepath.Join(dir, "missing")) {
		t.Fatalf("missing path reported as existing")
	}
	if !FileExists(f) {
		t.Fatalf("expected file to exist")
	}
	if FileExists(dir) {
		t.Fatalf("directory reported as file")
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	target := filepath.Join(realDir, "chatglm3-6b")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	t.Run("absolute", func(t *testing.T) {
		got, err := ResolvePath(target)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got != target {
			t.Fatalf("expected %q, got %q", target, got)
		}
	})

	t.Run("relative", func(t *testing.T) {
		t.Chdir(realDir)
		got, err := ResolvePath("chatglm3-6b")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got != target {
			t.Fatalf("expected %q, got %q", target, got)
		}
	})

	t.Run("missing stays absolute", func(t *testing.T) {
		t.Chdir(realDir)
		got, err := ResolvePath("THUDM/chatglm3-6b")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want := filepath.Join(realDir, "THUDM", "chatglm3-6b")
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("symlink", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on windows")
		}
		link := filepath.Join(realDir, "current")
		if err := os.Symlink(target, link); err != nil {
			t.Fatalf("symlink: %v", err)
		}
		got, err := ResolvePath(link)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got != target {
			t.Fatalf("expected %q, got %q", target, got)
		}
	})

	t.Run("missing under symlink", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on windows")
		}
		link := filepath.Join(realDir, "latest")
		if err := os.Symlink(target, link); err != nil {
			t.Fatalf("symlink: %v", err)
		}
		got, err := ResolvePath(filepath.Join(link, "adapter", "missing"))
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want := filepath.Join(target, "adapter", "missing")
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("home", func(t *testing.T) {
		home := setHome(t)
		got, err := ResolvePath("~")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want, _ := filepath.EvalSymlinks(home)
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})
}
