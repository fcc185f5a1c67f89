// pamenu is a launcher-driven mixer: it mirrors the sound server's device
// graph and lets the user switch defaults, adjust volumes and change card
// profiles through any dmenu-style picker.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/vimeo/dials"
	"github.com/vimeo/dials/sources/env"
	"github.com/vimeo/dials/sources/flag"

	"pamenu/graph"
	"pamenu/icons"
	"pamenu/launcher"
	"pamenu/log"
	"pamenu/menu"
	"pamenu/notify"
	"pamenu/pa"
)

type Config struct {
	Launcher        string `dialsdesc:"picker to use: fuzzel, rofi, dmenu, walker, custom or tty"`
	LauncherCommand string `dialsdesc:"command template for the custom launcher; {prompt} and {placeholder} are substituted"`
	Icon            string `dialsdesc:"menu icon mode: none, font or xdg"`
	Spaces          int    `dialsdesc:"spaces between a font icon and its text"`
	VolumeStep      int    `dialsdesc:"volume step in percent for the volume menu"`
	Server          string `dialsdesc:"sound server address, autodetected when empty"`
	Notifications   bool   `dialsdesc:"send desktop notifications for changes made through the menu"`
	Verbose         bool   `dialsdesc:"enable debug logging"`
}

func defaultConfig() *Config {
	return &Config{
		Launcher:      "fuzzel",
		Icon:          "font",
		Spaces:        1,
		VolumeStep:    5,
		Notifications: true,
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	config := defaultConfig()
	flagSrc, err := flag.NewCmdLineSet(flag.DefaultFlagNameConfig(), config)
	if err != nil {
		log.Errorf("config: %v", err)
		return 1
	}
	d, err := dials.Config(ctx, config, &env.Source{}, flagSrc)
	if err != nil {
		log.Errorf("config: %v", err)
		return 1
	}
	config = d.View()
	log.SetVerbose(config.Verbose)

	kind, err := launcher.ParseKind(config.Launcher)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	iconMode, err := icons.ParseMode(config.Icon)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	if kind == launcher.TTY && iconMode != icons.None {
		// The inline picker prints rows verbatim.
		iconMode = icons.None
	}

	pick, err := launcher.New(kind, config.LauncherCommand, config.Icon)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}

	model := graph.NewModel()
	bridge, err := pa.Connect(config.Server, model)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}

	ready := make(chan struct{})
	bridgeErr := make(chan error, 1)
	go func() {
		bridgeErr <- bridge.Run(ctx, func() { close(ready) })
	}()

	select {
	case <-ready:
	case err := <-bridgeErr:
		log.Errorf("%v", err)
		return 1
	case <-ctx.Done():
		return 0
	}

	ctrl := menu.New(
		model,
		bridge.Commands(),
		pick,
		icons.New(iconMode, config.Spaces),
		notify.New(config.Notifications),
		float64(config.VolumeStep)/100,
	)

	menuErr := make(chan error, 1)
	go func() {
		menuErr <- ctrl.Run(ctx)
	}()

	select {
	case err := <-menuErr:
		cancel()
		if err != nil {
			log.Errorf("%v", err)
			return 1
		}
		return 0
	case err := <-bridgeErr:
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("%v", err)
			return 1
		}
		return 0
	case <-ctx.Done():
		return 0
	}
}
