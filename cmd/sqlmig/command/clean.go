package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop all objects of the managed schemas",
	Long: `Drop all objects (tables, views, sequences, functions, and
types) of the managed schemas, including the schema history table.
The clean-disabled setting must be set to false explicitly, so
production databases cannot be wiped out accidentally.`,
	Args: cobra.NoArgs,
	RunE: clean,
}

func clean(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	if err = e.uc.Clean(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Successfully cleaned schemas.")
	return err
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
