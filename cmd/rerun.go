package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/felixpackard/testchanged/internal/domain"
)

var rerunDryRunFlag bool
var rerunVerboseFlag bool
var rerunProgressFlag bool
var rerunRunnerFlag string

// rerunCmd represents the rerun command.
var rerunCmd = newRerunCmd()

func newRerunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rerun [-- runner-args...]",
		Short: "Re-run the modules that failed last time",
		Long:  rerunLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			own, runnerArgs := splitRunnerArgs(cmd, args)
			if len(own) > 0 {
				return fmt.Errorf("unexpected arguments %v (runner arguments go after --)", own)
			}

			dir, err := workingDir()
			if err != nil {
				return err
			}

			return workflow.Rerun(cmd.Context(), domain.RerunArgs{
				Dir:        dir,
				DryRun:     rerunDryRunFlag,
				Verbose:    rerunVerboseFlag,
				FailFast:   viper.GetBool(failFastConfigKey),
				JSON:       viper.GetBool(jsonConfigKey),
				Progress:   viper.GetBool(progressConfigKey),
				Runner:     viper.GetString(runnerConfigKey),
				RunnerArgs: runnerArgs,
				ReportsDir: viper.GetString(outputFlagName),
			})
		},
	}

	cmd.Flags().BoolVarP(&rerunDryRunFlag, dryRunFlagName, "n", false, "print the modules that would be tested without running tests")
	cmd.Flags().BoolVarP(&rerunVerboseFlag, verboseFlagName, "v", false, "stream full test output while running")

	cmd.Flags().BoolVar(&rerunProgressFlag, progressFlagName, viper.GetBool(progressConfigKey), "show an interactive progress display on a terminal")
	bindFlagToConfig(cmd.Flags().Lookup(progressFlagName), progressConfigKey)

	cmd.Flags().StringVarP(&rerunRunnerFlag, runnerFlagName, "r", viper.GetString(runnerConfigKey), "test runner to use (gotest or gotestsum)")
	bindFlagToConfig(cmd.Flags().Lookup(runnerFlagName), runnerConfigKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(rerunCmd)
}
