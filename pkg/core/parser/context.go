// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import "github.com/momeni/sqlmig/pkg/core/model"

// Context is the mutable state of parsing one script. It is created by
// Parse and passed by pointer to the lexer and the dialect hooks, so it
// must not be retained after the hook returns or be shared between
// concurrent parses.
type Context struct {
	// Delimiter is the active statement delimiter. It is changed by the
	// delimiter directives and stays active for the rest of the script.
	Delimiter model.Delimiter

	// ParensDepth is the current parenthesis nesting depth.
	ParensDepth int

	blocks     []string
	lastClosed string
}

// NewContext creates a Context which starts with the given delimiter
// and no open blocks.
func NewContext(d model.Delimiter) *Context {
	return &Context{Delimiter: d}
}

// BlockDepth returns the number of open blocks.
func (pc *Context) BlockDepth() int {
	return len(pc.blocks)
}

// IncreaseBlockDepth opens a block which is initiated by the opener
// keyword.
func (pc *Context) IncreaseBlockDepth(opener string) {
	pc.blocks = append(pc.blocks, opener)
}

// DecreaseBlockDepth closes the innermost block. Closing a block when
// none is open has no effect, so a stray closer cannot make the depth
// negative.
func (pc *Context) DecreaseBlockDepth() {
	n := len(pc.blocks)
	if n == 0 {
		return
	}
	pc.lastClosed = pc.blocks[n-1]
	pc.blocks = pc.blocks[:n-1]
}

// BlockInitiator returns the opener keyword of the innermost open block
// or an empty string if no block is open.
func (pc *Context) BlockInitiator() string {
	if n := len(pc.blocks); n > 0 {
		return pc.blocks[n-1]
	}
	return ""
}

// LastClosedBlockInitiator returns the opener keyword of the block which
// was closed most recently.
func (pc *Context) LastClosedBlockInitiator() string {
	return pc.lastClosed
}
