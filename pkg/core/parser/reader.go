// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/momeni/sqlmig/pkg/core/model"
)

// Reader walks over a script while tracking the byte offset, line, and
// column of its current position. Dialects use it in order to consume
// their specific literals.
type Reader struct {
	src string
	pos model.Position
}

func newReader(src string) *Reader {
	return &Reader{src: src, pos: model.Position{Line: 1, Col: 1}}
}

// Pos returns the current position.
func (r *Reader) Pos() model.Position {
	return r.pos
}

// EOF reports whether all of the script is consumed.
func (r *Reader) EOF() bool {
	return r.pos.Offset >= len(r.src)
}

// Rest returns the unconsumed part of the script.
func (r *Reader) Rest() string {
	return r.src[r.pos.Offset:]
}

// Text returns the script text between the from offset and the current
// position.
func (r *Reader) Text(from int) string {
	return r.src[from:r.pos.Offset]
}

// PeekRune returns the rune at the current position, or utf8.RuneError
// at the end of the script.
func (r *Reader) PeekRune() rune {
	c, _ := utf8.DecodeRuneInString(r.Rest())
	return c
}

// PeekRuneAt returns the rune which starts n bytes after the current
// position, or utf8.RuneError if it is out of range.
func (r *Reader) PeekRuneAt(n int) rune {
	if r.pos.Offset+n >= len(r.src) {
		return utf8.RuneError
	}
	c, _ := utf8.DecodeRuneInString(r.src[r.pos.Offset+n:])
	return c
}

// HasPrefix reports whether the unconsumed text begins with s.
func (r *Reader) HasPrefix(s string) bool {
	return strings.HasPrefix(r.Rest(), s)
}

// HasPrefixFold is like HasPrefix, but ignores the letters case.
func (r *Reader) HasPrefixFold(s string) bool {
	rest := r.Rest()
	return len(rest) >= len(s) && strings.EqualFold(rest[:len(s)], s)
}

// Advance consumes n bytes, updating the line and column numbers.
// A CR LF pair and lone CR or LF characters are counted as one line
// break each.
func (r *Reader) Advance(n int) {
	end := min(r.pos.Offset+n, len(r.src))
	for r.pos.Offset < end {
		c, size := utf8.DecodeRuneInString(r.src[r.pos.Offset:])
		r.pos.Offset += size
		switch {
		case c == '\n':
			r.pos.Line++
			r.pos.Col = 1
		case c == '\r' && !strings.HasPrefix(r.src[r.pos.Offset:], "\n"):
			r.pos.Line++
			r.pos.Col = 1
		case c == '\r':
		default:
			r.pos.Col++
		}
	}
}

// AdvanceWhile consumes runes as long as f accepts them and returns
// the consumed text.
func (r *Reader) AdvanceWhile(f func(rune) bool) string {
	from := r.pos.Offset
	rest := r.Rest()
	n := 0
	for n < len(rest) {
		c, size := utf8.DecodeRuneInString(rest[n:])
		if !f(c) {
			break
		}
		n += size
	}
	r.Advance(n)
	return r.Text(from)
}

// AdvancePast consumes the text up to and including the next s and
// returns the consumed text. If s cannot be found, nothing is consumed
// and false is returned.
func (r *Reader) AdvancePast(s string) (string, bool) {
	i := strings.Index(r.Rest(), s)
	if i < 0 {
		return "", false
	}
	from := r.pos.Offset
	r.Advance(i + len(s))
	return r.Text(from), true
}

// AdvanceLine consumes the text up to (excluding) the next line break
// and returns it.
func (r *Reader) AdvanceLine() string {
	return r.AdvanceWhile(func(c rune) bool {
		return c != '\n' && c != '\r'
	})
}

// lineBlankBefore reports whether only whitespaces precede the current
// position on its line.
func (r *Reader) lineBlankBefore() bool {
	for i := r.pos.Offset - 1; i >= 0; i-- {
		switch r.src[i] {
		case '\n', '\r':
			return true
		case ' ', '\t', '\f', '\v':
		default:
			return false
		}
	}
	return true
}

// lineBlankAfter reports whether only whitespaces follow the next n
// bytes on the current line.
func (r *Reader) lineBlankAfter(n int) bool {
	for i := r.pos.Offset + n; i < len(r.src); i++ {
		switch r.src[i] {
		case '\n', '\r':
			return true
		case ' ', '\t', '\f', '\v':
		default:
			return false
		}
	}
	return true
}

// IsWordRune reports whether c may appear in an unquoted word.
func IsWordRune(c rune) bool {
	return c == '_' || c == '$' || c == '#' ||
		unicode.IsLetter(c) || unicode.IsDigit(c)
}
