// Copyright (c) 2025 Erik Kassubek
//
// File: main.go
// Brief: Demo harness running seeded deadlock scenarios against the
//        detector
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"deadlock/detect"
	"deadlock/internal/log"
	"deadlock/report"
	"deadlock/scenarios"
)

var (
	help bool

	scenario string
	logPath  string

	quiet            bool
	blockAfterReport bool
)

func init() {
	flag.BoolVar(&help, "h", false, "Print help")

	flag.StringVar(&scenario, "scen", "two-thread-cross",
		"Scenario to run. One of: "+scenarios.Names())
	flag.StringVar(&logPath, "log", "", "Path of the JSON-lines log of deadlock reports and lifecycle events (truncated at start)")

	flag.BoolVar(&quiet, "quiet", false, "Suppress informational logging")
	flag.BoolVar(&blockAfterReport, "block", true, "Allow a goroutine to keep blocking after its cycle is reported")
}

func main() {
	flag.Parse()

	if help {
		flag.Usage()
		return
	}

	run, ok := scenarios.Lookup(scenario)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown scenario %q, available: %s\n", scenario, scenarios.Names())
		os.Exit(1)
	}

	var found []report.Report

	err := detect.Init(detect.Config{
		LogPath:          logPath,
		BlockAfterReport: blockAfterReport,
		Quiet:            quiet,
		Callback: func(r report.Report) {
			found = append(found, r)
		},
	})
	if err != nil {
		log.Errorf("failed to start detector: %s", err)
		os.Exit(1)
	}
	defer detect.Close()

	log.Info("running scenario: ", scenario)

	run(5 * time.Second)

	if len(found) == 0 {
		log.Important("no deadlock detected")
		return
	}

	log.Result(fmt.Sprintf("%d deadlock(s) detected", len(found)))
}
