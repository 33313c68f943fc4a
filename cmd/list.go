package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/felixpackard/testchanged/internal/domain"
)

var listFromFlag string
var listToFlag string
var listSkipDependentsFlag bool

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List affected modules without testing them",
		Long:  listLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := workingDir()
			if err != nil {
				return err
			}

			return workflow.List(cmd.Context(), domain.ListArgs{
				Dir:            dir,
				FromRef:        listFromFlag,
				ToRef:          listToFlag,
				SkipDependents: listSkipDependentsFlag,
				JSON:           viper.GetBool(jsonConfigKey),
			})
		},
	}

	cmd.Flags().StringVar(&listFromFlag, fromFlagName, "", "compare against this git reference instead of uncommitted changes")
	cmd.Flags().StringVar(&listToFlag, toFlagName, "", "end of the reference range (defaults to the current state)")
	cmd.Flags().BoolVarP(&listSkipDependentsFlag, skipDependentsFlagName, "s", false, "only list modules with changes, skip dependents")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
