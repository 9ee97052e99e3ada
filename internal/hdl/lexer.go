// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdl implements the lexer and parser for hierarchical signal names,
// bus ranges and connection strings.
//
package hdl

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Type is a token type.
//
type Type int

// Tokens
const (
	EOF Type = iota - 1
	Raw
	Ident
	BracketOpen
	BracketClose
	Comma
	Int
	Range
	Equal
)

var typeNames = map[Type]string{
	EOF:          "end of input",
	Raw:          "character",
	Ident:        "identifier",
	BracketOpen:  "'['",
	BracketClose: "']'",
	Comma:        "','",
	Int:          "integer",
	Range:        "'..'",
	Equal:        "'='",
}

// Pos is a byte offset in the input.
//
type Pos int

// Item is a lexed token.
//
type Item struct {
	Type  Type
	Pos   Pos
	Value interface{}
}

func (i Item) String() string {
	switch i.Type {
	case EOF, BracketOpen, BracketClose, Comma, Range, Equal:
		return typeNames[i.Type]
	case Raw:
		return strconv.QuoteRune(i.Value.(rune))
	case Int:
		return typeNames[i.Type] + " " + strconv.Itoa(i.Value.(int))
	}
	return typeNames[i.Type] + " " + strconv.Quote(i.Value.(string))
}

type stateFn func(l *Lexer) stateFn

// Lexer is a state function based lexer.
//
type Lexer struct {
	input string
	pos   int // current read position
	start int // start of current token
	cur   rune
	width int
	state stateFn
	items []Item
}

const eof = -1

// NewLexer returns a new lexer for i/o specs and connection descriptions.
//
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, state: lexInit}
}

// Lex returns the next token.
//
func (l *Lexer) Lex() Item {
	for len(l.items) == 0 {
		l.start = l.pos
		l.state = l.state(l)
		if l.state == nil {
			l.state = lexInit
		}
	}
	i := l.items[0]
	l.items = l.items[1:]
	return i
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		l.cur = eof
		return eof
	}
	l.cur, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	return l.cur
}

func (l *Lexer) backup() {
	l.pos -= l.width
	l.width = 0
}

func (l *Lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *Lexer) emit(t Type, v interface{}) {
	l.items = append(l.items, Item{t, Pos(l.start), v})
}

func lexInit(l *Lexer) stateFn {
	r := l.next()
	switch {
	case r == eof:
		return lexEOF
	case unicode.IsSpace(r):
		for unicode.IsSpace(l.peek()) {
			l.next()
		}
		return lexInit
	case unicode.IsLetter(r) || r == '_':
		return lexIdent(l)
	case r == '[':
		l.emit(BracketOpen, "[")
	case r == ']':
		l.emit(BracketClose, "]")
	case r == ',':
		l.emit(Comma, ",")
	case '0' <= r && r <= '9':
		return lexNumber(l)
	case r == '=':
		l.emit(Equal, "=")
	case r == '.':
		if l.peek() == '.' {
			l.next()
			l.emit(Range, "..")
			break
		}
		fallthrough
	default:
		l.emit(Raw, r)
		return lexEOF
	}
	return nil
}

func lexNumber(l *Lexer) stateFn {
	i := int(l.cur - '0')
	for r := l.next(); '0' <= r && r <= '9'; r = l.next() {
		i = i*10 + int(r-'0')
	}
	l.backup()
	l.emit(Int, i)
	return nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// lexIdent lexes a dotted identifier like "uart0.tx" or "dev.data.3".
func lexIdent(l *Lexer) stateFn {
	var buf strings.Builder
	buf.WriteRune(l.cur)
	for {
		r := l.next()
		if isIdentRune(r) {
			buf.WriteRune(r)
			continue
		}
		if r == '.' {
			if isIdentRune(l.peek()) {
				buf.WriteRune(r)
				continue
			}
			// unread '.'
			l.pos--
			break
		}
		l.backup()
		break
	}
	l.emit(Ident, buf.String())
	return nil
}

// lexEOF places the lexer in End-Of-File state.
// Once in this state, the lexer will only emit EOF.
//
func lexEOF(l *Lexer) stateFn {
	l.emit(EOF, nil)
	return lexEOF
}
