package command

import (
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin/infors"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the state of all migrations",
	Long: `Print the details and state of all available and applied
migrations, including the pending, failed, missing, and future ones.
Nothing is changed in the database, so the schema history table is not
created nor locked.`,
	Args: cobra.NoArgs,
	RunE: info,
}

func info(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	infos, err := e.uc.Info(ctx)
	if err != nil {
		return err
	}
	sums := infors.SerInfos(infos.All())
	w := cmd.OutOrStdout()
	if done, err := printValue(w, sums); done {
		return err
	}
	return printInfos(w, sums)
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
