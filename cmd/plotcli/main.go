// Hasher: Neural Inference Engine Powered by SHA-256 ASICs
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command plotcli is the synchronous command-line front end over the
// core: it parses a task descriptor from flags, runs it to completion,
// and logs progress messages as they arrive.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"plotgen/internal/config"
	"plotgen/pkg/plot"
)

func main() {
	defaults, err := config.LoadPlotDefaults()
	if err != nil {
		log.Fatalf("plotcli: loading defaults: %v", err)
	}

	var (
		accountID      = flag.Uint64("id", 0, "account id")
		startNonce     = flag.Uint64("start", 0, "starting nonce index")
		nonceCount     = flag.Uint64("count", 0, "number of nonces to plot")
		outputDir      = flag.String("dir", defaults.OutputDir, "output directory")
		memoryBudget   = flag.Uint64("mem", defaults.MemoryBudget, "memory budget in bytes (0 = auto)")
		cpuWorkerCount = flag.Int("cpu", 0, "CPU worker count (0 = runtime.NumCPU)")
		accelerators   = flag.String("accel", "", "comma-separated accelerator specs, platform:device:cores")
		directIO       = flag.Bool("direct-io", defaults.DirectIO, "use direct I/O when writing the plot file")
		benchmark      = flag.Bool("benchmark", false, "benchmark mode: hash but never touch disk")
	)
	flag.Parse()

	if *nonceCount == 0 {
		log.Fatal("plotcli: -count is required and must be positive")
	}

	var specs []plot.AcceleratorSpec
	if *accelerators != "" {
		for _, s := range strings.Split(*accelerators, ",") {
			specs = append(specs, plot.AcceleratorSpec(s))
		}
	}

	progress := make(chan plot.ProgressMessage, 256)
	stop := plot.NewStopSignal()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Print("plotcli: stop signal received, draining in-flight work")
		stop.Stop()
	}()

	task := plot.Task{
		AccountID:        *accountID,
		StartNonce:       *startNonce,
		NonceCount:       *nonceCount,
		OutputDir:        *outputDir,
		MemoryBudget:     *memoryBudget,
		CPUWorkerCount:   *cpuWorkerCount,
		AcceleratorSpecs: specs,
		DirectIO:         *directIO,
		BenchmarkMode:    *benchmark,
		StopSignal:       stop,
		Progress:         progress,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range progress {
			logProgress(msg)
		}
	}()

	err := plot.Run(task)
	close(progress)
	<-done

	if err != nil {
		log.Fatalf("plotcli: run failed: %v", err)
	}
}

func logProgress(msg plot.ProgressMessage) {
	switch {
	case msg.Err != "":
		log.Printf("error: %s", msg.Err)
	case msg.Done:
		log.Print("done")
	case msg.Log != "":
		log.Print(msg.Log)
	default:
		log.Printf("hash %.1f%% write %.1f%% speed %.0f n/min %.1f MiB/s",
			msg.Progress*100, msg.WriteProgress*100, msg.SpeedNPM, msg.WriteSpeedMiB)
	}
}
