// Package cli is the command-line surface of bookcat. Every subcommand goes
// through the same catalog store and command surface as the TUI.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/bookcat/internal/adapter"
	"github.com/mmcdole/bookcat/internal/catalog"
	"github.com/mmcdole/bookcat/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Backend opens the catalog store for a loaded config. The returned func
// releases everything the store holds.
type Backend func(ctx context.Context, cfg *adapter.Config) (*catalog.Store, func(), error)

// annotation marking commands that only need the config
const configOnly = "bookcat/config-only"

// App holds the wiring shared by all subcommands
type App struct {
	LoadConfig func(configFile string) (*adapter.Config, error)
	Backend    Backend

	// Confirmation input; prompts are only shown when IsTerminal is true
	In         io.Reader
	IsTerminal func() bool

	flags struct {
		ConfigFile string
		ServerURL  string
	}

	cfg     *adapter.Config
	store   *catalog.Store
	cleanup func()
}

// New creates an App that opens stores through backend
func New(backend Backend) *App {
	return &App{
		LoadConfig: adapter.LoadConfig,
		Backend:    backend,
		In:         os.Stdin,
		IsTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// Execute runs the command line and releases the store afterwards
func Execute(version string, backend Backend) error {
	app := New(backend)
	defer app.Close()
	return app.Command(version).Execute()
}

// Close releases the store opened by the last command
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	a.store = nil
}

// Command builds the root command and its subcommands
func (a *App) Command(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookcat",
		Short:         "bookcat manages a book catalog from the terminal",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	root.PersistentFlags().StringVarP(&a.flags.ConfigFile, "config", "c", "", "configuration file (default ~/.config/bookcat/config.yaml)")
	root.PersistentFlags().StringVarP(&a.flags.ServerURL, "server", "s", "", "catalog service URL, overrides server.url")

	root.AddCommand(
		a.tuiCommand(),
		a.listCommand(),
		a.categoriesCommand(),
		a.addCommand(),
		a.editCommand(),
		a.deleteCommand(),
		a.cacheCommand(),
	)
	return root
}

// prepare loads the config and, unless the command only needs the config,
// opens the store
func (a *App) prepare(cmd *cobra.Command) error {
	cfg, err := a.LoadConfig(a.flags.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.flags.ServerURL != "" {
		cfg.Server.URL = a.flags.ServerURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	if cmd.Annotations[configOnly] == "true" {
		return nil
	}

	store, cleanup, err := a.Backend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.store = store
	a.cleanup = cleanup
	return nil
}

func (a *App) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit the catalog interactively (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}
}

func (a *App) runTUI() error {
	p := tea.NewProgram(
		tui.NewModel(a.store, nil),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (a *App) cacheCommand() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
	}

	cache.AddCommand(
		&cobra.Command{
			Use:         "path",
			Short:       "Print the cache directory",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{configOnly: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				path := a.cfg.GetCachePath()
				if path == "" {
					path = "(memory only)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:         "clear",
			Short:       "Remove all cached books and categories",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{configOnly: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.cfg.ClearCache(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			},
		},
	)
	return cache
}
