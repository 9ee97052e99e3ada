// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simcore

import (
	"github.com/db47h/simcore/internal/hdl"
	"github.com/pkg/errors"
)

// A Connection represents a connection between the pin PP of a part and
// the nets CP of its host (a machine or a chip).
//
type Connection struct {
	PP string
	CP []string
}

// ParseConnections parses a connection configuration like "partPinX=netY, ..."
// into a []Connection{{PP: "partPinX", CP: []string{"netY"}}, ...}.
//
//	Wire     = Assignment { [ space ] "," [ space ] Assignment } .
//	Assignment = Pin "=" Pin .
//	Pin      = identifier [ "[" Index | Range "]" ] .
//	Index    = integer .
//	Range    = integer ".." integer .
//	integer  = decimal_digit { decimal_digit } .
//
// Identifiers may be dotted names like "uart0.tx". Bus pins are named with a
// dotted index: "d[3]" is the same pin as "d.3".
//
// If both sides of an assignment have the same pin count, pins are connected
// one to one: "a[0..3]=d[4..7]" connects a.0 to d.4, a.1 to d.5 and so on. A
// single part pin can be connected to several nets ("a=d[0..3]") and several
// part pins to a single net ("a[0..3]=gnd").
//
// Clock connections use the same syntax, the right hand side being the name of
// a clock in the machine's clock tree.
//
func ParseConnections(c string) ([]Connection, error) {
	var conns []Connection
	p := hdl.Parser{Input: c}
	idx := make(map[string]int)
	for {
		item, err := p.Next(true)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return conns, nil
		}
		a, ok := item.(hdl.PinAssignment)
		if !ok {
			return nil, errors.Errorf("in %q: missing '=' after %v", c, hdl.Names(item))
		}
		ks, vs := hdl.Names(a.LHS), hdl.Names(a.RHS)
		var cs []Connection
		switch {
		case len(ks) == len(vs):
			for i := range ks {
				cs = append(cs, Connection{ks[i], []string{vs[i]}})
			}
		case len(ks) == 1:
			cs = append(cs, Connection{ks[0], vs})
		case len(vs) == 1:
			for _, k := range ks {
				cs = append(cs, Connection{k, vs})
			}
		default:
			return nil, errors.Errorf("in %q: pin count mismatch in %v=%v", c, ks, vs)
		}
		// merge multiple assignments to the same part pin
		for _, cn := range cs {
			if i, ok := idx[cn.PP]; ok {
				conns[i].CP = append(conns[i].CP, cn.CP...)
				continue
			}
			idx[cn.PP] = len(conns)
			conns = append(conns, Connection{cn.PP, append([]string(nil), cn.CP...)})
		}
	}
}
