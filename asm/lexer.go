/*
 * fruticose vm - Assembly lexer
 *
 * Copyright 2026, The Fruticose VM contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package asm assembles the line-oriented textual syntax into a loadable
// stream of vm.Op values: a two-pass parse, labels resolved to byte
// offsets in pass two.
package asm

import (
	"strings"
	"unicode"
)

// tokKind classifies one lexed token.
type tokKind int

const (
	tokIdent tokKind = iota
	tokNumber
	tokComma
	tokColon
	tokEOF
)

type token struct {
	kind tokKind
	text string
	neg  bool
}

// lexLine splits one line (comments and label colons included) into
// tokens. ';' begins a comment running to end of line, matching the
// syntax contract.
func lexLine(line string) []token {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon})
			i++
		case c == '-' && i+1 < len(line) && unicode.IsDigit(rune(line[i+1])):
			j := i + 1
			for j < len(line) && unicode.IsDigit(rune(line[j])) {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: line[i+1 : j], neg: true})
			i = j
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(line) && unicode.IsDigit(rune(line[j])) {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: line[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(line) && isIdentCont(line[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: line[i:j]})
			i = j
		default:
			// Unrecognized punctuation is skipped without producing a
			// token; the rest of the line is lexed as if it were absent.
			i++
		}
	}
	return toks
}

func isIdentStart(c byte) bool {
	return unicode.IsLetter(rune(c)) || c == '_' || c == '.'
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || unicode.IsDigit(rune(c))
}
