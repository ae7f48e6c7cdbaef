package cmd

import (
	"fmt"

	"compat-merger/core/patch"

	"github.com/spf13/cobra"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the generated patch",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		svc, err := a.service(false)
		if err != nil {
			return err
		}

		outcome, p, err := svc.Remove()
		if err != nil {
			return err
		}
		if outcome == patch.NotFound {
			fmt.Printf("No patch found at %s\n", p)
			return nil
		}
		fmt.Printf("Removed %s\n", p)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(removeCmd)
}
