// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"fmt"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// TokenType classifies tokens.
type TokenType int

// These constants enumerate the token types.
const (
	TokenKeyword TokenType = iota
	TokenIdentifier
	TokenString
	TokenNumeric
	TokenComment
	TokenDelimiter
	TokenNewDelimiter
	TokenSymbol
	TokenParensOpen
	TokenParensClose
	TokenEOF
)

var tokenTypeNames = [...]string{
	TokenKeyword:      "KEYWORD",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenNumeric:      "NUMERIC",
	TokenComment:      "COMMENT",
	TokenDelimiter:    "DELIMITER",
	TokenNewDelimiter: "NEW_DELIMITER",
	TokenSymbol:       "SYMBOL",
	TokenParensOpen:   "PARENS_OPEN",
	TokenParensClose:  "PARENS_CLOSE",
	TokenEOF:          "EOF",
}

func (tt TokenType) String() string {
	if tt < 0 || int(tt) >= len(tokenTypeNames) {
		return fmt.Sprintf("TokenType(%d)", int(tt))
	}
	return tokenTypeNames[tt]
}

// Token is a lexical unit of a script. Text holds the upper-cased word
// for keywords, the new delimiter for new-delimiter tokens, and the
// raw text for other token types, while Raw always holds the raw text.
// ParensDepth is the parenthesis nesting depth of the token; an opening
// parenthesis has the depth of its contents and a closing one has the
// depth of its surrounding text.
type Token struct {
	Type        TokenType
	Text        string
	Raw         string
	Pos         model.Position
	ParensDepth int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Type, t.Text, t.Pos)
}
