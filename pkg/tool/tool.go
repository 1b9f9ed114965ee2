// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains helpers shared by the command line binaries.
package tool

import (
	"flag"
	"fmt"
	"os"
)

var (
	flagCPUProfile = flag.String("cpuprofile", "", "write CPU profile to this file")
	flagMemProfile = flag.String("memprofile", "", "write memory profile to this file")
)

// Init parses the command line and returns a function that must be deferred by main.
func Init() func() {
	flag.Parse()
	prof, err := startProfiling(*flagCPUProfile, *flagMemProfile)
	if err != nil {
		Fail(err)
	}
	return func() {
		if err := prof.stop(); err != nil {
			Fail(err)
		}
	}
}

func Failf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}
