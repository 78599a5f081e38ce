// Command pepper-headless is a sample compositor server exercising the
// full repaint pipeline (surface commit, view recompute, plane
// assignment, damage, frame scheduling) against the headless backend,
// with no real display device. Grounded on the teacher's sample
// command pattern (a thin main that reads flags/env, configures the
// package-level singleton, and runs until a signal arrives) and on
// spec.md §6's command-line surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gviegas/pepper/backend"
	_ "github.com/gviegas/pepper/backend/headless"
	"github.com/gviegas/pepper/config"
	"github.com/gviegas/pepper/output"
	"github.com/gviegas/pepper/pepper"
	"github.com/gviegas/pepper/pepperlog"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on a clean SIGINT/SIGTERM
// shutdown, non-zero when configuration or backend initialization
// fails, per spec.md §6.
func run() int {
	configPath := flag.String("config", "", "path to a YAML config file (lower precedence than env vars)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pepper-headless:", err)
		return 1
	}
	pepperlog.Logger().Info("starting",
		"renderer", cfg.Renderer,
		"vt", cfg.VT,
		"no_scanout_fast_path", cfg.NoScanoutFastPath,
		"no_shadow_buffer", cfg.NoShadowBuffer,
	)

	drv := backend.ByName("headless")
	if drv == nil {
		fmt.Fprintln(os.Stderr, "pepper-headless: no headless backend driver registered")
		return 1
	}
	be, err := drv.Open()
	if err != nil {
		pepperlog.Logger().Error("backend open failed", "error", err)
		return 1
	}

	c := pepper.New(nil)
	o := c.NewOutput(
		output.Geometry{Scale: 1},
		[]output.Mode{
			{Width: 1920, Height: 1080, RefreshMHz: 60000, Preferred: true},
			{Width: 1280, Height: 720, RefreshMHz: 60000},
		},
		0,
	)
	c.AttachBackend(o, be)
	c.NewLayer("shell")

	// Run installs its own SIGINT/SIGTERM handling via loop.Loop, so a
	// plain background context is all that's needed here.
	if err := c.Run(context.Background()); err != nil {
		pepperlog.Logger().Error("compositor stopped", "error", err)
		return 1
	}
	return 0
}
