// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for Votekeeper using Cobra. It
// defines the root command, the shared start-up (configuration, language,
// logging) and the version helpers. The subcommands live next to it.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	log "github.com/charmbracelet/log"
	"github.com/one2talk/votekeeper/buildvars"
	"github.com/one2talk/votekeeper/internal/config"
	"github.com/one2talk/votekeeper/internal/core"
	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/i18n"
	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)
var cfgFile string
var envFile string
var verbose bool
var showVersionFlag bool

var appConfig config.Config

// openServices opens the configured database. Tests replace it to inject an
// in-memory store.
var openServices = func(cmd *cobra.Command) (*core.Services, error) {
	return core.Open(cmd.Context(), &appConfig, core.WithReporter(cmdReporter(cmd)))
}

// cmdReporter prints core progress lines to the command's output.
func cmdReporter(cmd *cobra.Command) core.Reporter {
	return core.ReporterFunc(func(format string, args ...any) {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	})
}

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	if verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}

	// The web application keeps its settings in .env; variables already in
	// the environment win.
	if err := config.LoadDotEnv(envFile); err != nil {
		log.Warnf("could not read %s: %v", envFile, err)
	}

	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	// A "file not found" error is expected on first run, so we handle it specifically.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			// The app can run on defaults.
			log.Warnf("could not write default config file: %v", writeErr)
		} else if p, perr := config.GetConfigPath(false); perr == nil {
			log.Debugf("wrote default config to %s", p)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if appConfig.Language == "" {
		appConfig.Language = "en"
	}
	i18n.Init(appConfig.Language)

	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("%s\n%w", i18n.T("config.invalid"), err)
	}
	return nil
}

// Execute runs the CLI entrypoint. The cmd/votekeeper main package should
// call this function and handle process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	// Make sure the user-provided file exists to avoid unwanted behavior.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "votekeeper",
		Short: "Votekeeper backs up, restores and syncs the One2Talk voting database.",
		Long: `Votekeeper takes full backups (database and uploaded images) and
database-only snapshots of the One2Talk voting application, restores them,
copies tables to and from a remote PostgreSQL server, ships backup files to
another machine and runs the periodic delivery worker.

Running without a subcommand will launch the interactive menu.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Fprintln(cmd.OutOrStdout(), compositeVersion())
				os.Exit(0)
			}
			return setupDefaultServices(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()
			return tui.Run(cmd.Context(), svc)
		},
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logs, SQL errors)")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with DATABASE_URL and delivery credentials")
	cmd.PersistentFlags().String("database.url", "", "Database URL (e.g. sqlite:///./votes.db, postgresql://...)")
	cmd.PersistentFlags().String("paths.backup_dir", "", "Directory backups are written to and listed from")
	cmd.PersistentFlags().String("paths.uploads_dir", "", "Live uploads directory of the web application")
	cmd.PersistentFlags().String("language", "", `Interface language ("en", "de")`)

	cmd.AddCommand(
		newBackupCmd(),
		newRestoreCmd(),
		newListCmd(),
		newStatsCmd(),
		newTransferCmd(),
		newCopyCmd(),
		newDeliverCmd(),
		newMaintainCmd(),
		newVersionCmd(),
	)
	return cmd
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// Printing the version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module as a dependency.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/one2talk/votekeeper" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort show the commit given via ldflags.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, strings.TrimSpace(resolvedDate)
}
