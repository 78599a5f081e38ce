package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsSoftwareRenderer(t *testing.T) {
	c := Default()
	if c.Renderer != RendererSoftware {
		t.Fatalf("have default renderer %q, want %q", c.Renderer, RendererSoftware)
	}
}

func fakeEnv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestEnvOverridesRenderer(t *testing.T) {
	c, err := load("", fakeEnv(map[string]string{"PEPPER_RENDERER": "gl"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Renderer != RendererGL {
		t.Fatalf("have renderer %q, want gl", c.Renderer)
	}
}

func TestEnvRejectsUnknownRenderer(t *testing.T) {
	_, err := load("", fakeEnv(map[string]string{"PEPPER_RENDERER": "vulkan"}))
	if err == nil {
		t.Fatal("have nil error for unknown renderer, want non-nil")
	}
}

func TestEnvOverridesVTAndFlags(t *testing.T) {
	c, err := load("", fakeEnv(map[string]string{
		"PEPPER_VT":                   "2",
		"PEPPER_NO_SCANOUT_FAST_PATH": "true",
		"PEPPER_NO_SHADOW_BUFFER":     "1",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.VT != 2 {
		t.Fatalf("have VT %d, want 2", c.VT)
	}
	if !c.NoScanoutFastPath {
		t.Fatal("have NoScanoutFastPath false, want true")
	}
	if !c.NoShadowBuffer {
		t.Fatal("have NoShadowBuffer false, want true")
	}
}

func TestYAMLFileIsOverriddenByEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pepper.yaml")
	const doc = "renderer: gl\nvt: 1\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	c, err := load(path, fakeEnv(map[string]string{"PEPPER_VT": "7"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Renderer != RendererGL {
		t.Fatalf("have renderer %q from file, want gl", c.Renderer)
	}
	if c.VT != 7 {
		t.Fatalf("have VT %d, want env override 7", c.VT)
	}
}

func TestMissingYAMLFileIsAnError(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), fakeEnv(nil))
	if err == nil {
		t.Fatal("have nil error for missing file, want non-nil")
	}
}
