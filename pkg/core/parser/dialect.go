// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"regexp"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// Dialect supplies the backend specific lexing and block rules.
// Implementations usually embed Base and override a few methods.
type Dialect interface {
	// DefaultDelimiter returns the delimiter which is active at the
	// beginning of each script.
	DefaultDelimiter() model.Delimiter

	// IdentifierQuote reports whether open starts a quoted identifier
	// and returns its closing quote character.
	IdentifierQuote(open rune) (close rune, ok bool)

	// ReadAlternativeString may consume a dialect specific string
	// literal (like the dollar quoted strings) from r. It returns false
	// without consuming anything if no such literal starts at r.
	ReadAlternativeString(r *Reader) (ok bool, err error)

	// DirectivePrefix returns the prefix of comments which carry
	// directives, or an empty string if the dialect has no directives.
	DirectivePrefix() string

	// Directive interprets a directive comment line and returns the new
	// delimiter if the directive changes it. An error is returned for a
	// malformed delimiter directive.
	Directive(line string) (model.Delimiter, bool, error)

	// AdjustBlockDepth is called for each keyword at parenthesis depth
	// zero, given the previous tokens of the current statement, so it
	// may open or close blocks in pc.
	AdjustBlockDepth(pc *Context, tokens []Token, keyword Token)

	// Transactional decides whether a statement can be executed in a
	// transaction, given its first keywords. The second result is false
	// if more keywords are needed for a decision.
	Transactional(keywords []Token) (canExecute, decided bool)

	// Classify converts a parsed statement into its executable form.
	Classify(ps model.ParsedStatement) (Statement, error)
}

// Base implements Dialect with the ANSI rules: semicolon delimiter,
// double-quoted identifiers, no directives, and no blocks.
type Base struct{}

func (Base) DefaultDelimiter() model.Delimiter {
	return model.DefaultDelimiter
}

func (Base) IdentifierQuote(open rune) (rune, bool) {
	return '"', open == '"'
}

func (Base) ReadAlternativeString(*Reader) (bool, error) {
	return false, nil
}

func (Base) DirectivePrefix() string {
	return ""
}

func (Base) Directive(string) (model.Delimiter, bool, error) {
	return model.Delimiter{}, false, nil
}

func (Base) AdjustBlockDepth(*Context, []Token, Token) {
}

func (Base) Transactional([]Token) (bool, bool) {
	return true, false
}

func (Base) Classify(ps model.ParsedStatement) (Statement, error) {
	return &SQLStatement{ParsedStatement: ps}, nil
}

// LastKeywordIndex returns the index of the last keyword token among
// tokens[:end], or -1 if there is no such keyword.
func LastKeywordIndex(tokens []Token, end int) int {
	for i := end - 1; i >= 0; i-- {
		if tokens[i].Type == TokenKeyword {
			return i
		}
	}
	return -1
}

// PreviousToken returns the last non-comment token which has the given
// parenthesis depth.
func PreviousToken(tokens []Token, parensDepth int) (Token, bool) {
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		if t.ParensDepth != parensDepth || t.Type == TokenComment {
			continue
		}
		return t, true
	}
	return Token{}, false
}

// LastTokenIs reports whether the previous token at the given depth
// has the given text.
func LastTokenIs(tokens []Token, parensDepth int, text string) bool {
	t, ok := PreviousToken(tokens, parensDepth)
	return ok && t.Text == text
}

// MatchesTrailing joins the current keyword with the keywords which
// precede it at the same parenthesis depth (stopping at the first token
// with another depth), separated by single spaces and in their script
// order, and reports whether re matches the joined text. Patterns
// should be anchored (with ^ and $) in order to match the whole text.
func MatchesTrailing(tokens []Token, current Token, re *regexp.Regexp) bool {
	words := []string{current.Text}
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		if t.ParensDepth != current.ParensDepth {
			break
		}
		if t.Type == TokenKeyword {
			words = append(words, t.Text)
		}
	}
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	return re.MatchString(strings.Join(words, " "))
}

// SimplifiedText joins the texts of keywords by single spaces.
func SimplifiedText(keywords []Token) string {
	words := make([]string, len(keywords))
	for i, k := range keywords {
		words[i] = k.Text
	}
	return strings.Join(words, " ")
}
