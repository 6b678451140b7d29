// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/repo"
)

// ArgKind specifies how a procedure call argument is passed.
type ArgKind int

const (
	// ArgPassthrough arguments are kept in the SQL text as they are,
	// like host variables or expressions.
	ArgPassthrough ArgKind = iota
	ArgString
	ArgInteger
	ArgNull
)

func (k ArgKind) String() string {
	switch k {
	case ArgString:
		return "string"
	case ArgInteger:
		return "integer"
	case ArgNull:
		return "null"
	default:
		return "passthrough"
	}
}

// CallArg is one argument of a procedure call. Value is the dequoted
// and unescaped text for strings, an int64 for integers, nil for NULL,
// and the trimmed argument text for the passthrough arguments.
type CallArg struct {
	Kind  ArgKind
	Value any
}

var (
	callRegex    = regexp.MustCompile(`(?is)^CALL\s+([^\s(]+)\s*\((\S.*)\)$`)
	integerRegex = regexp.MustCompile(`^-?\d+$`)
)

// ParseCall decomposes a CALL statement into its procedure name and
// arguments. It returns false if sql is not a CALL statement with a
// non-empty parenthesized arguments list.
func ParseCall(sql string) (proc string, args []CallArg, ok bool) {
	m := callRegex.FindStringSubmatch(strings.TrimSpace(sql))
	if m == nil {
		return "", nil, false
	}
	for _, a := range SplitArgs(m[2]) {
		args = append(args, ClassifyArg(a))
	}
	return m[1], args, true
}

// SplitArgs splits a comma separated list of arguments, ignoring the
// commas which appear in single quoted string literals. The arguments
// are trimmed.
func SplitArgs(list string) []string {
	var args []string
	quoted := false
	from := 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '\'':
			quoted = !quoted
		case ',':
			if !quoted {
				args = append(args, strings.TrimSpace(list[from:i]))
				from = i + 1
			}
		}
	}
	return append(args, strings.TrimSpace(list[from:]))
}

// ClassifyArg classifies a trimmed argument text.
func ClassifyArg(a string) CallArg {
	switch {
	case len(a) >= 2 && a[0] == '\'' && a[len(a)-1] == '\'':
		s := strings.ReplaceAll(a[1:len(a)-1], "''", "'")
		return CallArg{Kind: ArgString, Value: s}
	case integerRegex.MatchString(a):
		if n, err := strconv.ParseInt(a, 10, 64); err == nil {
			return CallArg{Kind: ArgInteger, Value: n}
		}
	case strings.EqualFold(a, "NULL"):
		return CallArg{Kind: ArgNull}
	}
	return CallArg{Kind: ArgPassthrough, Value: a}
}

// CallStatement is a procedure call whose string, integer, and NULL
// arguments are bound as parameters. After its execution, the last row
// of its last result set is searched for the FailureSentinel text and
// if it is found, the call is reported as failed.
type CallStatement struct {
	model.ParsedStatement
	Proc            string
	Args            []CallArg
	FailureSentinel string
}

// NewCallStatement returns a CallStatement for ps if it is a CALL with
// arguments, or nil otherwise.
func NewCallStatement(
	ps model.ParsedStatement, sentinel string,
) *CallStatement {
	proc, args, ok := ParseCall(ps.SQL)
	if !ok {
		return nil
	}
	return &CallStatement{
		ParsedStatement: ps,
		Proc:            proc,
		Args:            args,
		FailureSentinel: sentinel,
	}
}

func (cs *CallStatement) Parsed() *model.ParsedStatement {
	return &cs.ParsedStatement
}

// Query returns the SQL text and bound arguments of this call.
func (cs *CallStatement) Query() (string, []any) {
	placeholders := make([]string, len(cs.Args))
	var bound []any
	for i, a := range cs.Args {
		if a.Kind == ArgPassthrough {
			placeholders[i] = a.Value.(string)
			continue
		}
		placeholders[i] = "?"
		bound = append(bound, a.Value)
	}
	sql := fmt.Sprintf(
		"CALL %s(%s)", cs.Proc, strings.Join(placeholders, ", "),
	)
	return sql, bound
}

func (cs *CallStatement) Execute(
	ctx context.Context, q repo.Queryer,
) model.StatementResult {
	res := model.StatementResult{Statement: &cs.ParsedStatement}
	sql, args := cs.Query()
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		res.Err = err
		return res
	}
	defer rows.Close()
	var last []any
	for {
		last = nil
		for rows.Next() {
			vals, err := rows.Values()
			if err != nil {
				res.Err = err
				return res
			}
			res.Rows = append(res.Rows, vals)
			last = vals
		}
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		res.Err = err
		return res
	}
	if cs.FailureSentinel != "" && containsText(last, cs.FailureSentinel) {
		res.Err = fmt.Errorf(
			"%s reported a failure: %v", cs.Proc, last,
		)
	}
	return res
}

func containsText(row []any, s string) bool {
	for _, v := range row {
		switch v := v.(type) {
		case string:
			if strings.Contains(v, s) {
				return true
			}
		case []byte:
			if strings.Contains(string(v), s) {
				return true
			}
		}
	}
	return false
}
