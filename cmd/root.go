// Package cmd provides the root command and CLI setup for testchanged.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixpackard/testchanged/internal/adapter"
	"github.com/felixpackard/testchanged/internal/controller"
	"github.com/felixpackard/testchanged/internal/domain"
)

var vcsAdapter adapter.VCS
var workspaceAdapter adapter.Workspace
var reportStore adapter.ReportStore
var ui controller.UI
var workflow domain.Workflow

// reportsOutputDirFlag is a root-level flag shared by commands that read or
// write run reports.
var reportsOutputDirFlag string

// jsonOutputFlag switches every command to the machine-readable event stream.
var jsonOutputFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	vcsAdapter = adapter.NewGitVCS()
	workspaceAdapter = adapter.NewGoWorkspace()
	reportStore = adapter.NewFileReportStore()
	workflow = domain.NewWorkflow(vcsAdapter, workspaceAdapter, reportStore, ui)
}

const rootLongDescription = `testchanged runs tests only for the workspace modules affected by a code
change. It resolves which modules contain changed files, expands the set to
everything that depends on them, and runs the configured test tool once per
module, in a deterministic order.

Changed files come from git: either uncommitted working-tree changes
(default) or a reference range via --from/--to.`

const runLongDescription = `Run tests for the affected modules (default: uncommitted changes).

Arguments after -- are passed to the test runner verbatim:

  testchanged run -- -count=1 -race`

const listLongDescription = `List the modules that would be tested, without running anything.`

const rerunLongDescription = `Re-run the modules that failed in the previous run, using the report saved
under the output directory.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "testchanged",
		Short:         "Run tests for changed workspace modules",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool(verboseFlagName)
			configureLogger(verbose)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for run reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&jsonOutputFlag, jsonFlagName, viper.GetBool(jsonConfigKey), "emit machine-readable JSON events instead of console output")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(jsonFlagName), jsonConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		reportError(rootCmd, err)
		os.Exit(domain.ExitCode(err))
	}
}

// reportError prints the single-cause error message, plus an installation
// tip when the selected test runner is missing.
func reportError(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)

	var notInstalled *domain.RunnerNotInstalledError
	if errors.As(err, &notInstalled) {
		fmt.Fprintf(cmd.ErrOrStderr(), "  tip: %s\n", notInstalled.Tip)
	}
}

// splitRunnerArgs separates the command's own positional arguments from the
// passthrough arguments following the -- separator.
func splitRunnerArgs(cmd *cobra.Command, args []string) (own, passthrough []string) {
	at := cmd.ArgsLenAtDash()
	if at < 0 {
		return args, nil
	}

	return args[:at], args[at:]
}

func workingDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}

	return dir, nil
}
