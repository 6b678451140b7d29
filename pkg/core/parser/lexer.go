// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/model"
)

type lexer struct {
	d Dialect
	r *Reader
}

func newLexer(d Dialect, src string) *lexer {
	return &lexer{d: d, r: newReader(src)}
}

// Tokenize lexes the whole src script with the d dialect rules and
// returns its tokens, including the comments and the final EOF token.
// The delimiter directives are applied while lexing, so the returned
// delimiter tokens reflect the delimiter which was active at their
// positions.
func Tokenize(d Dialect, src string) ([]Token, error) {
	lx := newLexer(d, src)
	pc := NewContext(d.DefaultDelimiter())
	var tokens []Token
	for {
		t, err := lx.next(pc)
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, t)
		switch t.Type {
		case TokenEOF:
			return tokens, nil
		case TokenNewDelimiter:
			pc.Delimiter = model.Delimiter{Text: t.Text}
		}
	}
}

func (lx *lexer) errorf(pos model.Position, format string, args ...any) error {
	return &cerr.ParseError{Pos: pos, Err: fmt.Errorf(format, args...)}
}

// next reads the next token. Whitespaces are skipped, but comments are
// returned as tokens.
func (lx *lexer) next(pc *Context) (Token, error) {
	r := lx.r
	r.AdvanceWhile(unicode.IsSpace)
	start := r.Pos()
	tok := func(tt TokenType, text string) Token {
		return Token{
			Type:        tt,
			Text:        text,
			Raw:         r.Text(start.Offset),
			Pos:         start,
			ParensDepth: pc.ParensDepth,
		}
	}
	if r.EOF() {
		return tok(TokenEOF, ""), nil
	}
	if n := lx.delimiterLen(pc.Delimiter); n > 0 {
		r.Advance(n)
		return tok(TokenDelimiter, r.Text(start.Offset)), nil
	}
	c := r.PeekRune()
	switch {
	case c == '(':
		r.Advance(1)
		t := tok(TokenParensOpen, "(")
		pc.ParensDepth++
		return t, nil
	case c == ')':
		r.Advance(1)
		if pc.ParensDepth > 0 {
			pc.ParensDepth--
		}
		return tok(TokenParensClose, ")"), nil
	case r.HasPrefix("--"):
		if p := lx.d.DirectivePrefix(); p != "" && r.HasPrefix(p) {
			line := r.AdvanceLine()
			d, ok, err := lx.d.Directive(line)
			if err != nil {
				return Token{}, &cerr.ParseError{Pos: start, Err: err}
			}
			if ok {
				return tok(TokenNewDelimiter, d.Text), nil
			}
			return tok(TokenComment, line), nil
		}
		return tok(TokenComment, r.AdvanceLine()), nil
	case r.HasPrefix("/*"):
		if err := lx.readBlockComment(); err != nil {
			return Token{}, err
		}
		return tok(TokenComment, r.Text(start.Offset)), nil
	}
	ok, err := lx.d.ReadAlternativeString(r)
	if err != nil {
		var pe *cerr.ParseError
		if errors.As(err, &pe) {
			return Token{}, err
		}
		return Token{}, &cerr.ParseError{Pos: start, Err: err}
	}
	if ok {
		return tok(TokenString, r.Text(start.Offset)), nil
	}
	if n := stringPrefixLen(r); n >= 0 {
		escapes := n == 1 && (r.PeekRune() == 'E' || r.PeekRune() == 'e')
		r.Advance(n + 1)
		read := lx.readQuoted
		if escapes {
			read = lx.readEscaped
		}
		if err := read('\''); err != nil {
			return Token{}, lx.errorf(start, "unterminated string literal")
		}
		return tok(TokenString, r.Text(start.Offset)), nil
	}
	if closer, ok := lx.d.IdentifierQuote(c); ok {
		r.Advance(utf8.RuneLen(c))
		if err := lx.readQuoted(closer); err != nil {
			return Token{}, lx.errorf(start, "unterminated quoted identifier")
		}
		return tok(TokenIdentifier, r.Text(start.Offset)), nil
	}
	switch {
	case unicode.IsDigit(c) || (c == '.' && unicode.IsDigit(r.PeekRuneAt(1))):
		lx.readNumeric()
		return tok(TokenNumeric, r.Text(start.Offset)), nil
	case unicode.IsLetter(c) || c == '_':
		word := lx.readWord(pc.Delimiter)
		return tok(TokenKeyword, strings.ToUpper(word)), nil
	}
	r.Advance(utf8.RuneLen(c))
	return tok(TokenSymbol, r.Text(start.Offset)), nil
}

// delimiterLen returns the length of delimiter d if it starts at the
// current position, or zero otherwise.
func (lx *lexer) delimiterLen(d model.Delimiter) int {
	r := lx.r
	if d.Text == "" || !r.HasPrefixFold(d.Text) {
		return 0
	}
	n := len(d.Text)
	last, _ := utf8.DecodeLastRuneInString(d.Text)
	if IsWordRune(last) && IsWordRune(r.PeekRuneAt(n)) {
		return 0 // like GO in GOTO
	}
	if d.AloneOnLine && (!r.lineBlankBefore() || !r.lineBlankAfter(n)) {
		return 0
	}
	return n
}

// stringPrefixLen returns the length of the prefix of a single quoted
// string literal which starts at the current position (zero for plain
// literals and one or two for the E'', B'', X'', N'', and U&'' forms),
// or -1 if no string literal starts there.
func stringPrefixLen(r *Reader) int {
	switch c := r.PeekRune(); {
	case c == '\'':
		return 0
	case strings.ContainsRune("EeBbXxNn", c) && r.PeekRuneAt(1) == '\'':
		return 1
	case (c == 'U' || c == 'u') && r.PeekRuneAt(1) == '&' &&
		r.PeekRuneAt(2) == '\'':
		return 2
	}
	return -1
}

// readQuoted consumes the rest of a quoted text, after its opening
// quote, which is closed by the closer character. A doubled closer is
// taken as an escaped quote character.
func (lx *lexer) readQuoted(closer rune) error {
	r := lx.r
	q := string(closer)
	for {
		if _, ok := r.AdvancePast(q); !ok {
			return errors.New("unterminated")
		}
		if !r.HasPrefix(q) {
			return nil
		}
		r.Advance(len(q))
	}
}

// readEscaped is like readQuoted, but also accepts backslash escapes.
func (lx *lexer) readEscaped(closer rune) error {
	r := lx.r
	for !r.EOF() {
		c := r.PeekRune()
		switch {
		case c == '\\':
			r.Advance(1)
			r.Advance(utf8.RuneLen(r.PeekRune()))
		case c == closer && r.PeekRuneAt(utf8.RuneLen(c)) == closer:
			r.Advance(2 * utf8.RuneLen(c))
		case c == closer:
			r.Advance(utf8.RuneLen(c))
			return nil
		default:
			r.Advance(utf8.RuneLen(c))
		}
	}
	return errors.New("unterminated")
}

// readBlockComment consumes a possibly nested /* */ comment.
func (lx *lexer) readBlockComment() error {
	r := lx.r
	start := r.Pos()
	r.Advance(2)
	depth := 1
	for depth > 0 {
		switch {
		case r.EOF():
			return lx.errorf(start, "unterminated block comment")
		case r.HasPrefix("/*"):
			r.Advance(2)
			depth++
		case r.HasPrefix("*/"):
			r.Advance(2)
			depth--
		default:
			r.Advance(utf8.RuneLen(r.PeekRune()))
		}
	}
	return nil
}

func (lx *lexer) readNumeric() {
	r := lx.r
	r.AdvanceWhile(unicode.IsDigit)
	if r.PeekRune() == '.' {
		r.Advance(1)
		r.AdvanceWhile(unicode.IsDigit)
	}
	if c := r.PeekRune(); c == 'e' || c == 'E' {
		n := 1
		if s := r.PeekRuneAt(1); s == '+' || s == '-' {
			n = 2
		}
		if unicode.IsDigit(r.PeekRuneAt(n)) {
			r.Advance(n)
			r.AdvanceWhile(unicode.IsDigit)
		}
	}
}

// readWord consumes an unquoted word, stopping before the delimiter d
// if it is glued to the word (like END@ when @ is the delimiter, or
// T# when # is the delimiter).
func (lx *lexer) readWord(d model.Delimiter) string {
	r := lx.r
	from := r.Pos().Offset
	for !r.EOF() {
		c := r.PeekRune()
		if !IsWordRune(c) {
			break
		}
		if r.Pos().Offset > from && lx.delimiterLen(d) > 0 {
			break
		}
		r.Advance(utf8.RuneLen(c))
	}
	return r.Text(from)
}
