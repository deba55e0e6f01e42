// config.go implements the "ipfa config" command for configuration management.
//
// Separated from extension.go to isolate config-specific logic including
// the local vs global config precedence rules.
//
// Design: Config follows a cascade model similar to git: local config
// (.ipfa/config.yaml) takes precedence over global (~/.ipfa/config.yaml).
// The --local flag forces use of local config even if it doesn't exist yet.
// Environment variables (IPF_URL, IPF_TOKEN, ...) override both but are
// never written back.

package core

import (
	"fmt"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/config"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "View or set config values",
		Long: `View or set config values.

  ipfa config                              # show config
  ipfa config ipf.url                      # show one value
  ipfa config ipf.url https://ipf.local    # set a value
  ipfa config ipf.token --reveal           # show a secret unmasked

Configuration locations:
  Global: ~/.ipfa/config.yaml (or $IPFA_HOME/config.yaml)
  Local:  .ipfa/config.yaml

Uses local config if it exists, otherwise global.
Writes go to the same place reads come from.
Use --local to use local config instead, --global for global.`,
		Args: cobra.MaximumNArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: runConfig,
	}
	c.Flags().Bool(extension.FlagLocal, false, "Use local config (.ipfa/config.yaml)")
	c.Flags().Bool(extension.FlagGlobal, false, "Use global config (~/.ipfa/config.yaml)")
	c.Flags().Bool(flagReveal, false, "Show secrets unmasked")
	c.MarkFlagsMutuallyExclusive(extension.FlagLocal, extension.FlagGlobal)
	return c
}

const flagReveal = "reveal"

func runConfig(c *cobra.Command, args []string) error {
	forceLocal, _ := c.Flags().GetBool(extension.FlagLocal)
	forceGlobal, _ := c.Flags().GetBool(extension.FlagGlobal)
	reveal, _ := c.Flags().GetBool(flagReveal)

	var cfg *config.Config
	var err error
	switch {
	case forceLocal:
		cfg, err = config.LoadScope(config.ScopeLocal)
	case forceGlobal:
		cfg, err = config.LoadScope(config.ScopeGlobal)
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("config load: %w", err))
	}

	scopeName := "global"
	if cfg.Scope() == config.ScopeLocal {
		scopeName = "local"
	}

	switch len(args) {
	case 0:
		all := cfg.All()
		log.Event("core:config", "list").Author(cmd.Author()).Detail("scope", scopeName).Write(nil)
		if cmd.JSON() {
			return cmd.PrintJSON(all)
		}
		for _, k := range config.ValidKeys() {
			fmt.Fprintf(cmd.Out(), "%s: %s\n", k, all[k])
		}

	case 1:
		get := cfg.Display
		if reveal {
			get = cfg.Get
		}
		v, err := get(args[0])
		log.Event("core:config", "get").Author(cmd.Author()).Detail("key", args[0]).Write(err)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("config get %q: %w", args[0], err))
		}
		if cmd.JSON() {
			return cmd.PrintJSON(map[string]string{args[0]: v})
		}
		fmt.Fprintln(cmd.Out(), v)

	case 2:
		if err := cfg.Set(args[0], args[1]); err != nil {
			log.Event("core:config", "set").Author(cmd.Author()).Detail("key", args[0]).Write(err)
			return cmd.PrintJSONError(fmt.Errorf("config set %q: %w", args[0], err))
		}

		saveErr := cfg.Save()
		// Value not logged: keys include tokens.
		log.Event("core:config", "set").Author(cmd.Author()).Detail("key", args[0]).Detail("scope", scopeName).Write(saveErr)
		if saveErr != nil {
			return cmd.PrintJSONError(fmt.Errorf("config save: %w", saveErr))
		}
		shown, _ := cfg.Display(args[0])
		if cmd.JSON() {
			return cmd.PrintJSON(map[string]string{"key": args[0], "value": shown, "scope": scopeName})
		}
		fmt.Fprintf(cmd.Out(), "%s = %s (%s)\n", args[0], shown, scopeName)
	}
	return nil
}
