// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package parser splits the migration scripts into their statements.
//
// A script is lexed into tokens by the rules of a Dialect and the tokens
// are grouped into statements with a block depth state machine. Each
// keyword which is seen at the parenthesis depth zero is passed to the
// Dialect.AdjustBlockDepth method, so the dialect may open a block (like
// BEGIN, CASE, or LOOP) or close it (like END). A delimiter token ends a
// statement only if both of the parenthesis and block depths are zero.
// Therefore, the delimiters which appear in the body of procedures and
// triggers are kept as a part of those statements.
//
// The dialects may also define directive comments which change the
// delimiter for the rest of the script. The parsed statements are then
// classified by the dialect, so they may be executed with special
// semantics (e.g., the CALL statements on DB2 for z/OS).
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/model"
)

// transactionalCutoff is the maximum number of leading keywords which
// are considered for the transactional detection of a statement.
const transactionalCutoff = 10

// Parse splits the src contents of the named script into a sequence of
// executable statements based on the d dialect rules.
// Returned errors are of type *cerr.ParseError.
func Parse(d Dialect, script, src string) ([]Statement, error) {
	p := &stmtParser{
		lx:  newLexer(d, src),
		pc:  NewContext(d.DefaultDelimiter()),
		src: src,
	}
	var stmts []Statement
	for {
		ps, err := p.nextStatement()
		if err != nil {
			return nil, withScript(err, script)
		}
		if ps == nil {
			return stmts, nil
		}
		s, err := d.Classify(*ps)
		if err != nil {
			return nil, withScript(&cerr.ParseError{
				Pos: ps.Pos, Err: err,
			}, script)
		}
		stmts = append(stmts, s)
	}
}

func withScript(err error, script string) error {
	var pe *cerr.ParseError
	if errors.As(err, &pe) {
		pe.Script = script
		return pe
	}
	return &cerr.ParseError{Script: script, Err: err}
}

type stmtParser struct {
	lx  *lexer
	pc  *Context
	src string
}

// nextStatement reads tokens until the end of the next statement and
// returns it. A nil statement is returned when the script has no more
// statements.
func (p *stmtParser) nextStatement() (*model.ParsedStatement, error) {
	var tokens, keywords []Token
	content := -1 // index of the first non-comment token
	startDepth := p.pc.BlockDepth()
	canExec, decided := true, false
	for {
		t, err := p.lx.next(p.pc)
		if err != nil {
			return nil, err
		}
		switch t.Type {
		case TokenNewDelimiter:
			if content >= 0 {
				return nil, &cerr.ParseError{
					Pos: tokens[content].Pos,
					Err: fmt.Errorf(
						"delimiter changed inside statement: %s",
						p.textOf(tokens[content:]),
					),
				}
			}
			p.pc.Delimiter = model.Delimiter{Text: t.Text}
			tokens, keywords = nil, nil
			continue
		case TokenDelimiter:
			if content < 0 {
				// nothing but comments, so drop them
				tokens, keywords = nil, nil
				continue
			}
		}
		if t.Type == TokenKeyword && t.ParensDepth == 0 {
			keywords = append(keywords, t)
			p.lx.d.AdjustBlockDepth(p.pc, tokens, t)
		}
		if t.Type == TokenEOF || (t.Type == TokenDelimiter &&
			t.ParensDepth == 0 && p.pc.BlockDepth() == 0) {
			if content < 0 {
				return nil, nil
			}
			body := tokens[content:]
			if t.Type == TokenEOF &&
				(p.pc.ParensDepth > 0 || p.pc.BlockDepth() > 0) {
				return nil, &cerr.ParseError{
					Pos: body[0].Pos,
					Err: fmt.Errorf(
						"incomplete statement: %s", p.textOf(body),
					),
				}
			}
			if !decided {
				canExec, _ = p.lx.d.Transactional(keywords)
			}
			return &model.ParsedStatement{
				SQL:                     p.textOf(body),
				Pos:                     body[0].Pos,
				Delimiter:               p.pc.Delimiter,
				CanExecuteInTransaction: canExec,
				BlockDepthAtStart:       startDepth,
			}, nil
		}
		tokens = append(tokens, t)
		if content < 0 && t.Type != TokenComment {
			content = len(tokens) - 1
		}
		if !decided && t.Type == TokenKeyword &&
			len(keywords) <= transactionalCutoff {
			canExec, decided = p.lx.d.Transactional(keywords)
		}
	}
}

// textOf returns the script text which is covered by the given tokens,
// from the beginning of the first token to the end of the last one.
func (p *stmtParser) textOf(tokens []Token) string {
	if len(tokens) == 0 {
		return ""
	}
	first, last := tokens[0], tokens[len(tokens)-1]
	end := last.Pos.Offset + len(last.Raw)
	return strings.TrimSpace(p.src[first.Pos.Offset:end])
}
