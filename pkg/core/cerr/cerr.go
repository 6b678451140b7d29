// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cerr contains the core error types. Use cases and adapters
// wrap these errors with fmt.Errorf and the %w verb, so callers may use
// errors.As in order to find out which kind of failure has happened:
//   - ConfigurationError: settings are invalid, nothing was touched,
//   - ParseError: a script is malformed, none of its statements ran,
//   - ExecutionError: a statement failed in the database,
//   - LockTimeoutError: the schema history could not be bootstrapped,
//   - ValidationError(s): available and applied migrations disagree.
//
// The Error type carries an HTTP status code for the REST adapters.
package cerr

import (
	"fmt"
	"net/http"
)

type Error struct {
	Err            error
	HTTPStatusCode int
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.HTTPStatusCode, e.Err.Error())
}

func BadRequest(err error) *Error {
	return &Error{Err: err, HTTPStatusCode: http.StatusBadRequest}
}

func NotFound(err error) *Error {
	return &Error{Err: err, HTTPStatusCode: http.StatusNotFound}
}

func Conflict(err error) *Error {
	return &Error{Err: err, HTTPStatusCode: http.StatusConflict}
}

// ConfigurationError indicates that a setting is invalid or missing.
type ConfigurationError struct {
	Setting string
	Err     error
}

// Configuration returns a ConfigurationError about the given setting.
func Configuration(setting string, err error) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Err: err}
}

func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

func (ce *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s setting: %v", ce.Setting, ce.Err)
}

// LockTimeoutError indicates that an exclusive access to the Object
// could not be obtained (or used) even after the given Attempts.
type LockTimeoutError struct {
	Object   string
	Attempts int
	Err      error
}

func (lte *LockTimeoutError) Unwrap() error {
	return lte.Err
}

func (lte *LockTimeoutError) Error() string {
	return fmt.Sprintf(
		"giving up on %s after %d attempts: %v",
		lte.Object, lte.Attempts, lte.Err,
	)
}
