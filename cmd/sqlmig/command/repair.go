package command

import (
	"fmt"
	"text/tabwriter"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair the schema history table",
	Long: `Repair the schema history table by removing the failed
migration rows, realigning the checksums, descriptions, and types of
the applied migrations with the available ones, and marking the
applied migrations which are not available anymore as deleted.`,
	Args: cobra.NoArgs,
	RunE: repair,
}

func repair(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	res, err := e.uc.Repair(ctx)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if done, err := printValue(w, res); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Action\tVersion\tDescription\tChecksum")
	rows := func(action string, ams []model.AppliedMigration) {
		for _, am := range ams {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				action, am.Version, am.Description, checksum(am.Checksum),
			)
		}
	}
	rows("removed", res.RemovedFailed)
	rows("realigned", res.Realigned)
	rows("deleted", res.Deleted)
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
