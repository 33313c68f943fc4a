package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/felixpackard/testchanged/internal/domain"
)

var runFromFlag string
var runToFlag string
var runSkipDependentsFlag bool
var runDryRunFlag bool
var runVerboseFlag bool
var runFailFastFlag bool
var runProgressFlag bool
var runRunnerFlag string
var runUnitsFlag []string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [-- runner-args...]",
		Short: "Run tests for affected modules",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			own, runnerArgs := splitRunnerArgs(cmd, args)
			if len(own) > 0 {
				return fmt.Errorf("unexpected arguments %v (runner arguments go after --)", own)
			}

			dir, err := workingDir()
			if err != nil {
				return err
			}

			return workflow.Run(cmd.Context(), domain.RunArgs{
				Dir:            dir,
				FromRef:        runFromFlag,
				ToRef:          runToFlag,
				Units:          runUnitsFlag,
				SkipDependents: runSkipDependentsFlag,
				DryRun:         runDryRunFlag,
				Verbose:        runVerboseFlag,
				FailFast:       viper.GetBool(failFastConfigKey),
				JSON:           viper.GetBool(jsonConfigKey),
				Progress:       viper.GetBool(progressConfigKey),
				Runner:         viper.GetString(runnerConfigKey),
				RunnerArgs:     runnerArgs,
				ReportsDir:     viper.GetString(outputFlagName),
			})
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runFromFlag, fromFlagName, "", "compare against this git reference instead of uncommitted changes")
	cmd.Flags().StringVar(&runToFlag, toFlagName, "", "end of the reference range (defaults to the current state)")
	cmd.Flags().BoolVarP(&runSkipDependentsFlag, skipDependentsFlagName, "s", false, "only test modules with changes, skip dependents")
	cmd.Flags().BoolVarP(&runDryRunFlag, dryRunFlagName, "n", false, "print the modules that would be tested without running tests")
	cmd.Flags().BoolVarP(&runVerboseFlag, verboseFlagName, "v", false, "stream full test output while running")
	cmd.Flags().StringArrayVarP(&runUnitsFlag, unitFlagName, "u", nil, "test exactly this module, bypassing change detection (can be repeated)")

	cmd.Flags().BoolVar(&runFailFastFlag, failFastFlagName, viper.GetBool(failFastConfigKey), "stop at the first failing module")
	bindFlagToConfig(cmd.Flags().Lookup(failFastFlagName), failFastConfigKey)

	cmd.Flags().BoolVar(&runProgressFlag, progressFlagName, viper.GetBool(progressConfigKey), "show an interactive progress display on a terminal")
	bindFlagToConfig(cmd.Flags().Lookup(progressFlagName), progressConfigKey)

	cmd.Flags().StringVarP(&runRunnerFlag, runnerFlagName, "r", viper.GetString(runnerConfigKey), "test runner to use (gotest or gotestsum)")
	bindFlagToConfig(cmd.Flags().Lookup(runnerFlagName), runnerConfigKey)
}
