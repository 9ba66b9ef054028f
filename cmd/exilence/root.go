package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"exilence-cli/internal/config"
	"exilence-cli/internal/infra/logx"
	"exilence-cli/internal/poe"
	"exilence-cli/internal/settings"
	"exilence-cli/internal/ui"
)

// app carries what the commands share: the viper instance flags are bound
// to, the loaded config and the output streams.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config

	stdout io.Writer
	stderr io.Writer

	// transport overrides the retrying limiter transport (tests).
	transport http.RoundTripper
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{v: viper.New(), stdout: stdout, stderr: stderr}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "exilence",
		Short: "Choose which stash tabs Exilence tracks",
		Long: titleStyle.Render("exilence") + subtitleStyle.Render(" - stash tab selection for Path of Exile") + `

Without a subcommand an interactive table lists the stash tabs of the
configured account and league. Selected tabs are saved per account and
league and restored on the next start.

` + subtitleStyle.Render("Examples:") + `
  exilence                             Open the stash tab table
  exilence --league Settlers           Use another league for this run
  exilence tabs list --filter dump     Print matching tabs with their marks
  exilence tabs toggle 3 7             Toggle tabs 3 and 7
  exilence release check               Look for a newer release`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/exilence/config.toml)")
	flags.String("account", "", "Path of Exile account name")
	flags.String("league", "", "league to read stash tabs from")
	_ = a.v.BindPFlag("account", flags.Lookup("account"))
	_ = a.v.BindPFlag("league", flags.Lookup("league"))

	root.AddCommand(newTabsCommand(a))
	root.AddCommand(newReleaseCommand(a))
	root.AddCommand(newVersionCommand(a))
	return root
}

func (a *app) loadConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadInto(a.v, path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logx.SetOutput(a.stderr)
	logx.SetMinLevel(logx.ParseLevel(cfg.LogLevel))
	logx.RegisterSecret(cfg.SessionID)
	return nil
}

func (a *app) newClient() *poe.Client {
	return poe.New(poe.Options{
		BaseURL:    a.cfg.APIBase,
		ReleaseURL: a.cfg.ReleaseURL,
		SessionID:  a.cfg.SessionID,
		Transport:  a.transport,
	})
}

func (a *app) openStore() (*settings.Store, error) {
	store, err := settings.Open(a.cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	return store, nil
}

// runTUI starts the interactive table. Logs go to a file when DEBUG is set
// and are discarded otherwise, the alt screen owns the terminal.
func (a *app) runTUI(ctx context.Context) error {
	if len(os.Getenv("DEBUG")) > 0 {
		if err := os.MkdirAll(config.Dir(), 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		f, err := tea.LogToFile(filepath.Join(config.Dir(), "debug.log"), "exilence")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
		logx.SetOutput(f)
		logx.SetMinLevel(logx.LevelDebug)
		logx.SetVerbose(true)
		fmt.Fprintf(a.stderr, "Debug logging enabled. Run 'tail -f %s' to view logs.\n", f.Name())
	} else {
		logx.SetOutput(nil)
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	client := a.newClient()
	m := ui.NewModel(ui.Deps{
		Config:  a.cfg,
		Version: Version,
		Source:  client,
		Feed:    client,
		Store:   store,
		Metrics: client.Metrics(),
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(a.stdout, "exilence "+versionString())
			return err
		},
	}
}
