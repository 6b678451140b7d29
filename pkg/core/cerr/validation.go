// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

import (
	"fmt"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// ValidationCode classifies a ValidationError.
type ValidationCode string

// These constants are the validation codes.
const (
	FailedVersioned     ValidationCode = "FAILED_VERSIONED_MIGRATION"
	FailedRepeatable    ValidationCode = "FAILED_REPEATABLE_MIGRATION"
	AppliedNotResolved  ValidationCode = "APPLIED_MIGRATION_NOT_RESOLVED"
	ResolvedNotApplied  ValidationCode = "RESOLVED_MIGRATION_NOT_APPLIED"
	OutdatedRepeatable  ValidationCode = "OUTDATED_REPEATABLE_MIGRATION"
	TypeMismatch        ValidationCode = "TYPE_MISMATCH"
	ChecksumMismatch    ValidationCode = "CHECKSUM_MISMATCH"
	DescriptionMismatch ValidationCode = "DESCRIPTION_MISMATCH"
)

// ValidationError reports a disagreement between an available migration
// and its history row, or a migration which prevents a safe migration.
type ValidationError struct {
	Code        ValidationCode `json:"code"`
	Version     *model.Version `json:"version,omitempty"`
	Description string         `json:"description"`
	Message     string         `json:"message"`
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Code, ve.Message)
}

// Mismatch creates a ValidationError with the given code, indicating
// that the `what` attribute of a migration has the applied value in
// the schema history, while it is resolved as the resolved value.
func Mismatch(
	code ValidationCode, mi *model.MigrationInfo,
	what string, applied, resolved any,
) *ValidationError {
	id := "version " + mi.Version().String()
	if mi.Version() == nil {
		id = mi.Script()
	}
	return &ValidationError{
		Code:        code,
		Version:     mi.Version(),
		Description: mi.Description(),
		Message: fmt.Sprintf(
			"migration %s mismatch for migration %s: "+
				"applied to database %v, resolved locally %v; "+
				"either revert the changes to the migration, "+
				"or run repair to update the schema history",
			what, id, applied, resolved,
		),
	}
}

// ValidationErrors aggregates all validation errors of a schema.
type ValidationErrors []*ValidationError

func (ves ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ves))
	for _, ve := range ves {
		msgs = append(msgs, ve.Error())
	}
	return fmt.Sprintf(
		"validation failed with %d error(s): %s",
		len(ves), strings.Join(msgs, "; "),
	)
}
