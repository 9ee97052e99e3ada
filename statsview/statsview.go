// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package statsview runs a local HTTP server offering runtime statistics of
// the simulator process, using github.com/go-echarts/statsview.
//
// After launch, graphical statistics are viewable at:
//
//	localhost:12600/debug/statsview
//
// And standard Go pprof statistics are available at:
//
//	localhost:12600/debug/pprof/
//
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Address is the default listen address of the stats server.
//
const Address = "localhost:12600"

const url = "/debug/statsview"

// URL returns the statsview URL for the given listen address.
//
func URL(addr string) string {
	return "http://" + addr + url
}

// Launch starts the stats server on addr in a new goroutine and prints its URL
// to output. If addr is empty, Address is used.
//
func Launch(output io.Writer, addr string) {
	if addr == "" {
		addr = Address
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s\n", URL(addr))
}
