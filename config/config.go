// Package config loads the sample servers' configuration, per spec.md
// §6's command-line surface: a renderer choice, a virtual-terminal
// number for the direct-rendering backend, and two feature-disabling
// flags. Settings come from environment variables first (grounded on
// `wsi/init_linux.go`'s `os.Getenv("WAYLAND_DISPLAY")`/
// `os.Getenv("DISPLAY")` backend-selection checks, generalized from
// ad-hoc single-variable reads to a struct of named settings), with an
// optional YAML file as a lower-precedence source for the same
// settings (grounded on `gazed-vu/load/shd.go`'s `yaml.Unmarshal` use).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Renderer selects the rendering backend a sample server opens.
type Renderer string

const (
	// RendererGL selects an accelerated, GPU-backed renderer.
	RendererGL Renderer = "gl"
	// RendererSoftware selects a CPU-only software renderer.
	RendererSoftware Renderer = "sw"
)

// Config holds the settings spec.md §6 names. The zero value is valid:
// Renderer defaults to RendererSoftware, VT to 0 (meaning "do not
// attempt VT acquisition"), and both fast-path flags default to
// enabled (false disables nothing).
type Config struct {
	Renderer          Renderer `yaml:"renderer"`
	VT                int      `yaml:"vt"`
	NoScanoutFastPath bool     `yaml:"no_scanout_fast_path"`
	NoShadowBuffer    bool     `yaml:"no_shadow_buffer"`
}

// Default returns a Config with the documented zero-value defaults.
func Default() Config {
	return Config{Renderer: RendererSoftware}
}

// fileYAML unmarshals a YAML document at path on top of Default(), so
// settings the file omits keep their defaults; used as the
// lower-precedence source in Load.
func fileYAML(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// envOverrides is the set of environment variables spec.md §6 names,
// mirrored onto the given Config wherever present. Env vars always win
// over a YAML file's values, per SPEC_FULL.md's ordering.
func envOverrides(c Config, getenv func(string) string) (Config, error) {
	if v := getenv("PEPPER_RENDERER"); v != "" {
		switch Renderer(v) {
		case RendererGL, RendererSoftware:
			c.Renderer = Renderer(v)
		default:
			return c, fmt.Errorf("config: PEPPER_RENDERER: unknown value %q (want gl or sw)", v)
		}
	}
	if v := getenv("PEPPER_VT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("config: PEPPER_VT: %w", err)
		}
		c.VT = n
	}
	if v := getenv("PEPPER_NO_SCANOUT_FAST_PATH"); v != "" {
		c.NoScanoutFastPath = truthy(v)
	}
	if v := getenv("PEPPER_NO_SHADOW_BUFFER"); v != "" {
		c.NoShadowBuffer = truthy(v)
	}
	return c, nil
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Load builds a Config starting from Default, layering in yamlPath (if
// non-empty) and finally the process environment, in that precedence
// order (env wins). yamlPath is typically the sample server's -config
// flag value; pass "" to skip the file layer entirely.
func Load(yamlPath string) (Config, error) {
	return load(yamlPath, os.Getenv)
}

// load is Load with an injectable getenv, so tests do not depend on
// process-global environment state.
func load(yamlPath string, getenv func(string) string) (Config, error) {
	c := Default()
	if yamlPath != "" {
		fc, err := fileYAML(yamlPath)
		if err != nil {
			return c, err
		}
		c = fc
	}
	return envOverrides(c, getenv)
}
