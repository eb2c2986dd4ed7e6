// Command nesemu runs an NES cartridge in an ebiten window.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"nesemu/internal/bus"
	"nesemu/internal/cartridge"
	"nesemu/internal/diag"
	"nesemu/internal/presenter"
	"nesemu/internal/version"
)

// EmulatorConfig is the on-disk configuration for a single run, loaded
// from a JSON file next to the ROM (SPEC_FULL.md §1). It models a
// fraction of the teacher's config tree. Scale and VSync configure the
// window; StartPaused is read from the file but nothing consumes it.
type EmulatorConfig struct {
	Scale       int  `json:"scale"`
	VSync       bool `json:"vsync"`
	StartPaused bool `json:"start_paused"`
}

func defaultConfig() EmulatorConfig {
	return EmulatorConfig{Scale: 2, VSync: true}
}

func loadConfig(path string) (EmulatorConfig, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	return cfg, nil
}

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	buildInfo := flag.Bool("build-info", false, "print detailed build information and exit")
	logLevel := flag.String("log-level", "warn", "diagnostic log level: off, error, warn, info, debug")
	flag.Parse()

	if *buildInfo {
		version.PrintBuildInfo()
		return
	}
	if *showVersion {
		fmt.Println(version.GetDetailedVersion())
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <rom.nes>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	romPath := flag.Arg(0)

	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := diag.New(level, os.Stderr)

	cfgPath := strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".json"
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nesemu: %v\n", err)
		os.Exit(1)
	}

	cart, err := cartridge.LoadFromFile(romPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nesemu: loading %s: %v\n", romPath, err)
		os.Exit(1)
	}

	console := bus.New(log)
	console.LoadCartridge(cart)

	game := presenter.New(console, cfg.Scale)

	ebiten.SetWindowTitle(fmt.Sprintf("nesemu %s - %s", version.GetVersion(), filepath.Base(romPath)))
	ebiten.SetWindowSize(256*cfg.Scale, 240*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(cfg.VSync)

	if err := ebiten.RunGame(game); err != nil {
		fmt.Fprintf(os.Stderr, "nesemu: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) (diag.Level, error) {
	switch strings.ToLower(s) {
	case "off":
		return diag.LevelOff, nil
	case "error":
		return diag.LevelError, nil
	case "warn":
		return diag.LevelWarn, nil
	case "info":
		return diag.LevelInfo, nil
	case "debug":
		return diag.LevelDebug, nil
	default:
		return diag.LevelOff, fmt.Errorf("unknown log level %q", s)
	}
}
