package command

import (
	"fmt"

	"github.com/momeni/sqlmig/pkg/adapter/config/cfg1"
	"github.com/spf13/cobra"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Baseline an existing database",
	Long: `Baseline an existing database by recording the baseline
version in a new schema history table. Migrations up to and including
the baseline version will be ignored by the migrate command.`,
	Args: cobra.NoArgs,
	RunE: baseline,
}

var (
	baselineVersion     string
	baselineDescription string
)

func baseline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	e, err := setup(ctx, func(c *cfg1.Config) error {
		if flags.Changed("version") {
			c.Baseline.Version = baselineVersion
		}
		if flags.Changed("description") {
			c.Baseline.Description = baselineDescription
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer e.Close()
	if err = e.uc.Baseline(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"Successfully baselined schema with version: %s\n",
		e.cfg.Baseline.Version,
	)
	return err
}

func init() {
	f := baselineCmd.Flags()
	f.StringVar(&baselineVersion, "version", "", "baseline version")
	f.StringVar(
		&baselineDescription, "description", "", "baseline description",
	)
	rootCmd.AddCommand(baselineCmd)
}
