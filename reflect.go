// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simcore

import (
	"reflect"
	"strings"

	"github.com/db47h/simcore/clocktree"
	"github.com/db47h/simcore/internal/hdl"
	"github.com/db47h/simcore/signet"
	"github.com/pkg/errors"
)

// Device is the interface that custom components built using reflection must
// implement. See MakePart.
//
// Init is called once the pin and clock fields have been set. It should
// register the traces and timers implementing the device.
//
type Device interface {
	Init(s *Socket) error
}

var (
	nodeType  = reflect.TypeOf(signet.Node{})
	clockType = reflect.TypeOf(clocktree.ID(0))
)

const (
	tagIn = iota
	tagOut
	tagClock
)

type field struct {
	name string // pin name
	idx  int
	kind int
	bus  int // bus width, 0 for single pins
}

func parseFields(typ reflect.Type) []field {
	var fs []field
	n := typ.NumField()
	for i := 0; i < n; i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("hw")
		if !ok {
			continue
		}
		if f.PkgPath != "" {
			panic(errors.Errorf("unexported field %q in %q", f.Name, typ.Name()))
		}
		pin := strings.ToLower(f.Name)
		tv := strings.Split(tag, ",")
		if len(tv) == 2 && tv[1] != "" {
			pin = tv[1]
		}
		fd := field{name: pin, idx: i}
		switch tv[0] {
		case "in":
			fd.kind = tagIn
		case "out":
			fd.kind = tagOut
		case "clock":
			fd.kind = tagClock
		default:
			panic(errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name()))
		}
		ft := f.Type
		switch {
		case fd.kind == tagClock && ft == clockType:
		case fd.kind != tagClock && ft == nodeType:
		case fd.kind != tagClock && ft.Kind() == reflect.Array && ft.Elem() == nodeType:
			fd.bus = ft.Len()
		default:
			panic(errors.Errorf("unsupported type %q for field %q in %q", ft, f.Name, typ.Name()))
		}
		fs = append(fs, fd)
	}
	return fs
}

// MakePart wraps a Device into a custom component.
// Input/output pins and clocks are identified by field tags.
//
// The field tag must be `hw:"in"`, `hw:"out"` or `hw:"clock"` to identify
// input pins, output pins and clock inputs. By default, the pin name is the
// field name in lowercase. A specific pin name can be forced by adding it in
// the tag: `hw:"in,pin_name"`.
//
// Pins must be of type signet.Node, buses arrays of signet.Node and clocks of
// type clocktree.ID.
//
// Each time the part is mounted, a new value of the device's type is allocated,
// its tagged fields set, then its Init method is called.
//
func MakePart(d Device) *PartSpec {
	typ := reflect.TypeOf(d)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if k := typ.Kind(); k != reflect.Struct {
		panic(errors.Errorf("unsupported type %q for %q", k, typ.Name()))
	}
	if !reflect.PointerTo(typ).Implements(reflect.TypeOf((*Device)(nil)).Elem()) {
		panic(errors.Errorf("*%s does not implement Device", typ.Name()))
	}

	sp := &PartSpec{
		Name: typ.Name(),
	}
	fs := parseFields(typ)
	for _, f := range fs {
		names := []string{f.name}
		if f.bus > 0 {
			names = names[:0]
			for i := 0; i < f.bus; i++ {
				names = append(names, hdl.BusPinName(f.name, i))
			}
		}
		switch f.kind {
		case tagIn:
			sp.Inputs = append(sp.Inputs, names...)
		case tagOut:
			sp.Outputs = append(sp.Outputs, names...)
		case tagClock:
			sp.Clocks = append(sp.Clocks, f.name)
		}
	}
	sp.Mount = mountDevice(typ, fs)
	return sp
}

func mountDevice(typ reflect.Type, fs []field) MountFn {
	return func(s *Socket) error {
		v := reflect.New(typ)
		e := v.Elem()
		for _, f := range fs {
			fv := e.Field(f.idx)
			switch {
			case f.kind == tagClock:
				fv.Set(reflect.ValueOf(s.Clock(f.name)))
			case f.bus > 0:
				for i, n := range s.Bus(f.name, f.bus) {
					fv.Index(i).Set(reflect.ValueOf(n))
				}
			default:
				fv.Set(reflect.ValueOf(s.Pin(f.name)))
			}
		}
		return v.Interface().(Device).Init(s)
	}
}
