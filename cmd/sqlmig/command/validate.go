package command

import (
	"errors"
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the applied migrations against the available ones",
	Long: `Validate the applied migrations against the available ones.
Checksum, description, and type mismatches, failed migrations, and
the missing and pending migrations (unless they are ignored) are
reported and cause a non-zero exit code.`,
	Args: cobra.NoArgs,
	RunE: validate,
}

func validate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	err = e.uc.Validate(ctx)
	var ves cerr.ValidationErrors
	if !errors.As(err, &ves) {
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Successfully validated.")
		return err
	}
	w := cmd.OutOrStdout()
	done, perr := printValue(w, ves)
	if !done {
		for _, ve := range ves {
			fmt.Fprintln(w, ve.Error())
		}
	}
	return errors.Join(err, perr)
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
