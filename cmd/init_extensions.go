/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// init_extensions.go handles extension initialisation and command registration.
//
// Separated from root.go to isolate the initialisation logic that loads
// config, builds the IP Fabric client and wires up extensions.
//
// Design: Extensions register during init() but aren't initialised until
// first command execution. This two-phase pattern allows extensions to
// declare commands before any instance is configured. The client and
// session are created once and shared across all extensions via the Context.

package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/config"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/jpl-au/ipfa/internal/session"
	"go.uber.org/zap"
)

// offlineCommands lists commands that bypass extension initialisation.
// Built dynamically from bootstrap commands plus extension-declared
// offline commands.
var offlineCommands map[string]bool

// buildOfflineCommands creates the set of commands that skip connecting
// to IP Fabric.
//
// Most commands need a configured instance, but some must work without
// one: "ipfa guide" and "ipfa config" are how users get to a configured
// instance in the first place. Extensions add their own through the
// extension.Offline interface.
func buildOfflineCommands() map[string]bool {
	cmds := map[string]bool{
		"help":       true,
		"completion": true,
	}

	for _, name := range extension.OfflineCommands() {
		cmds[name] = true
	}
	return cmds
}

// Global extension context, created during initialisation.
var (
	extContext extension.Context
	initOnce   sync.Once
	initErr    error
)

// initExtensions builds the IP Fabric client and injects it into extensions.
//
// sync.Once guarantees exactly one client and session per process, shared by
// every extension.
func initExtensions(_ context.Context) error {
	initOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			initErr = err
			return
		}

		client, err := ipf.New(ipf.Options{
			URL:     cfg.IPF.URL,
			Token:   cfg.IPF.Token,
			Verify:  cfg.Verify(),
			Timeout: cfg.Timeout(),
		})
		if err != nil {
			initErr = fmt.Errorf("%w\n\nTo fix: ipfa config ipf.url https://... && ipfa config ipf.token ...\nor set IPF_URL and IPF_TOKEN", err)
			return
		}

		// Set project identifier for audit logging
		log.SetProject(cfg.IPF.URL)

		sess := session.New(cfg.Snapshot())
		if snapshot != "" {
			sess.Set(snapshot)
		}
		Logger().Debug("extensions initialising",
			zap.String("url", client.BaseURL()),
			zap.String("snapshot", sess.Snapshot()),
			zap.Bool("verify", cfg.Verify()))

		extContext = extension.NewContext(client, sess, cfg, Logger())

		for _, ext := range extension.All() {
			if init, ok := ext.(extension.Initializable); ok {
				if err := init.Init(extContext); err != nil {
					initErr = fmt.Errorf("init extension %s: %w", ext.Name(), err)
					return
				}
			}
		}
	})
	return initErr
}

var extensionsOnce sync.Once

// registerExtensions adds commands from all registered extensions.
// Called once before Execute runs.
func registerExtensions() {
	extensionsOnce.Do(func() {
		for _, ext := range extension.All() {
			for _, cmd := range ext.Commands() {
				rootCmd.AddCommand(cmd)
			}
		}

		// Build offlineCommands after all extensions are registered
		offlineCommands = buildOfflineCommands()
	})
}
