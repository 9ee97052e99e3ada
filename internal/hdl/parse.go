// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Pin is a simple pin name
//
type Pin struct {
	Name string
	Pos  Pos
}

// PinIndex is an indexed pin p[index]
//
type PinIndex struct {
	Pin
	Index int
}

// PinRange is a pin range p[start..end]
//
type PinRange struct {
	Pin
	Start int
	End   int
}

// PinAssignment is a part pin to net assignment. pp=net
//
type PinAssignment struct {
	LHS interface{}
	RHS interface{}
}

// Parser is a simplistic parser
//
type Parser struct {
	Input string
	l     *Lexer
	i     Item
	state int
}

const (
	stateDone = iota - 1
	stateInit
	stateStarted
)

// Next returns the next item in the input stream, or nil at the end of input.
// It only recognizes pin names followed by an index or range and separated by commas.
// allowConns specifies if connection config strings are supported
//
func (p *Parser) Next(allowConns bool) (interface{}, error) {
	if p.state == stateDone {
		return nil, nil
	}
	if p.l == nil {
		p.l = NewLexer(p.Input)
	}

	p.i = p.l.Lex()
	if p.state == stateInit && p.i.Type == EOF {
		p.state = stateDone
		return nil, nil
	}
	p.state = stateStarted

	pin, err := p.getPin()
	if err != nil {
		p.state = stateDone
		return nil, err
	}
	switch p.i.Type {
	case EOF:
		p.state = stateDone
		fallthrough
	case Comma:
		return pin, nil
	case Equal:
		if allowConns {
			break
		}
		fallthrough
	default:
		p.state = stateDone
		return nil, parseError(p.Input, p.i.Pos, "unexpected "+p.i.String())
	}

	p.i = p.l.Lex()
	pin2, err := p.getPin()
	if err != nil {
		p.state = stateDone
		return nil, err
	}
	switch p.i.Type {
	case EOF:
		p.state = stateDone
		fallthrough
	case Comma:
		return PinAssignment{pin, pin2}, nil
	}

	p.state = stateDone
	return nil, parseError(p.Input, p.i.Pos, "unexpected "+p.i.String())
}

func (p *Parser) getPin() (interface{}, error) {
	if p.i.Type != Ident {
		return nil, parseError(p.Input, p.i.Pos, "expected pin name")
	}
	pin := Pin{p.i.Value.(string), p.i.Pos}
	// after ident, expect ',', '[', '=' or EOF
	p.i = p.l.Lex()
	if p.i.Type != BracketOpen {
		return pin, nil
	}
	p.i = p.l.Lex()
	if p.i.Type != Int {
		return nil, parseError(p.Input, p.i.Pos, "integer value expected after '['")
	}
	start := p.i.Value.(int)
	end := -1
	p.i = p.l.Lex()
	if p.i.Type == Range {
		p.i = p.l.Lex()
		if p.i.Type != Int {
			return nil, parseError(p.Input, p.i.Pos, "integer value expected after '..'")
		}
		end = p.i.Value.(int)
		p.i = p.l.Lex()
	}
	if p.i.Type != BracketClose {
		return nil, parseError(p.Input, p.i.Pos, "closing ']' expected after index or range")
	}
	p.i = p.l.Lex()
	if end >= 0 {
		return PinRange{pin, start, end}, nil
	}
	return PinIndex{pin, start}, nil
}

func parseError(in string, pos Pos, msg string) error {
	return errors.Errorf("in %q at pos %d: %s", in, pos+1, msg)
}

// BusPinName returns the name of pin i of a bus: "name.i".
//
func BusPinName(name string, i int) string {
	return name + "." + strconv.Itoa(i)
}

// Names expands a pin item returned by Parser.Next into individual pin names.
// Ranges may be descending.
//
func Names(item interface{}) []string {
	switch p := item.(type) {
	case Pin:
		return []string{p.Name}
	case PinIndex:
		return []string{BusPinName(p.Name, p.Index)}
	case PinRange:
		var r []string
		if p.Start <= p.End {
			r = make([]string, 0, p.End-p.Start+1)
			for i := p.Start; i <= p.End; i++ {
				r = append(r, BusPinName(p.Name, i))
			}
		} else {
			r = make([]string, 0, p.Start-p.End+1)
			for i := p.Start; i >= p.End; i-- {
				r = append(r, BusPinName(p.Name, i))
			}
		}
		return r
	}
	return nil
}

// Expand parses a comma separated list of pin names like "a, d[0..7], clk"
// and returns the expanded pin names: "a", "d.0", ..., "d.7", "clk".
//
func Expand(spec string) ([]string, error) {
	var out []string
	p := Parser{Input: spec}
	for {
		item, err := p.Next(false)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return out, nil
		}
		out = append(out, Names(item)...)
	}
}

// CheckName checks that name is a valid dotted hierarchical name: one or more
// segments separated by dots, the first segment being an identifier and the
// others identifiers or decimal indices. For example "uart0.tx" or "dev.d.3".
//
func CheckName(name string) error {
	if name == "" {
		return errors.New("empty name")
	}
	for i, seg := range strings.Split(name, ".") {
		if seg == "" {
			return errors.Errorf("%q: empty name segment", name)
		}
		digits := true
		for j, r := range seg {
			switch {
			case r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z':
				digits = false
			case '0' <= r && r <= '9':
				if j == 0 && i == 0 {
					return errors.Errorf("%q: name must start with a letter", name)
				}
			default:
				return errors.Errorf("%q: invalid character %q", name, r)
			}
		}
		if digits && i > 0 {
			continue
		}
		if '0' <= seg[0] && seg[0] <= '9' {
			return errors.Errorf("%q: segment %q starts with a digit", name, seg)
		}
	}
	return nil
}
