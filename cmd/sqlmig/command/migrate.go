package command

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/momeni/sqlmig/pkg/adapter/config/cfg1"
	"github.com/momeni/sqlmig/pkg/core/usecase/migrationuc"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the pending migrations",
	Long: `Apply the pending migrations, up to the target version, while
the schema history table is locked. The schema history table and the
configured schemas are created if they are missing. Each migration is
executed in its own transaction unless the group mode is enabled, or
its statements cannot be executed in a transaction.`,
	Args: cobra.NoArgs,
	RunE: migrate,
}

var (
	migrateTarget     string
	migrateOutOfOrder bool
	migrateGroup      bool
)

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	e, err := setup(ctx, func(c *cfg1.Config) error {
		if flags.Changed("target") {
			c.Migrate.Target = migrateTarget
		}
		if flags.Changed("out-of-order") {
			c.Migrate.OutOfOrder = migrateOutOfOrder
		}
		if flags.Changed("group") {
			c.Migrate.Group = migrateGroup
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer e.Close()
	res, err := e.uc.Migrate(ctx)
	if res == nil {
		return err
	}
	w := cmd.OutOrStdout()
	done, perr := printValue(w, res)
	if !done {
		perr = printResult(cmd, res)
	}
	return errors.Join(err, perr)
}

func printResult(cmd *cobra.Command, res *migrationuc.Result) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Version\tDescription\tType\tExecution Time\tSuccess")
	for _, mr := range res.Migrations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
			mr.Version, mr.Description, mr.Type,
			mr.ExecutionTime.Round(time.Millisecond), mr.Success,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	switch {
	case len(res.Migrations) == 0:
		_, err := fmt.Fprintf(cmd.OutOrStdout(),
			"Schema is up to date. No migration necessary (version %s).\n",
			res.FinalVersion,
		)
		return err
	case res.Success:
		_, err := fmt.Fprintf(cmd.OutOrStdout(),
			"Successfully applied %d migration(s) (run %s), "+
				"now at version %s.\n",
			res.Applied, res.RunID, res.FinalVersion,
		)
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(),
		"Applied %d migration(s) before the failure (run %s).\n",
		res.Applied, res.RunID,
	)
	return err
}

func init() {
	f := migrateCmd.Flags()
	f.StringVar(
		&migrateTarget, "target", "",
		"target version, or one of latest, current, and next",
	)
	f.BoolVar(
		&migrateOutOfOrder, "out-of-order", false,
		"apply pending migrations older than the current version",
	)
	f.BoolVar(
		&migrateGroup, "group", false,
		"apply all pending migrations in one transaction",
	)
	rootCmd.AddCommand(migrateCmd)
}
