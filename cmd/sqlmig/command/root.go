// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root and sub-commands of the sqlmig.
// Commands are organized using the cobra library. All sub-commands
// read the same configuration file which locates the database, the
// migration scripts, and the schema history table.
//
//	./sqlmig info [-c /path/of/config.yaml] [-o text|json|yaml]
//	./sqlmig migrate [-c /path/of/config.yaml] [--target 2.1]
//	./sqlmig validate [-c /path/of/config.yaml]
//	./sqlmig repair [-c /path/of/config.yaml]
//	./sqlmig baseline [-c /path/of/config.yaml]
//	./sqlmig clean [-c /path/of/config.yaml]
//	./sqlmig serve [-c /path/of/config.yaml]
package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgPath   string
	logLevel  string
	logFormat string
	output    string
)

var rootCmd = &cobra.Command{
	Use:   "sqlmig",
	Short: "A versioned SQL schema migration tool",
	Long: `A versioned SQL schema migration tool which applies the
versioned and repeatable migration scripts of a directory to a database
and records them in a schema history table.
Scripts are named like V1.2__add_users.sql (versioned scripts which
are applied once, in the order of their versions) or R__views.sql
(repeatable scripts which are applied again whenever they change).
The schema history table is locked while migrating, so several
instances may run concurrently against the same database.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the rootCmd which in turn parses CLI arguments and
// flags and runs the most specific cobra command. The interrupt and
// termination signals cancel the context of the running command.
// Errors are printed to the stderr and cause a non-zero exit code.
func Execute() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "config file path")
	pf.StringVar(
		&logLevel, "log-level", "info", "debug, info, warn, or error",
	)
	pf.StringVar(&logFormat, "log-format", "text", "text or json")
	pf.StringVarP(&output, "output", "o", "text", "text, json, or yaml")
}

// fixConfigPath ensures that cfgPath is set respectively by either the
// CLI args, the CONFIG_FILE environment variable, or its default value.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("CONFIG_FILE"); !found {
		cfgPath = "sqlmig.yaml"
	}
}
