// Hasher: Neural Inference Engine Powered by SHA-256 ASICs
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command plotd is an HTTP front end over the core (spec §6.3): it
// accepts a plot task as JSON, runs it in the background, and exposes
// its progress sink over a polling endpoint. The front end is
// explicitly out of scope for the core itself (spec §1); this is one
// external collaborator talking to plot.Run through the task/progress
// types only.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plotgen/internal/config"
	"plotgen/pkg/plot"
)

var listenAddr = flag.String("listen", defaultListenAddr(), "HTTP listen address")

func defaultListenAddr() string {
	defaults, err := config.LoadPlotDefaults()
	if err != nil || defaults.ListenAddr == "" {
		return ":8090"
	}
	return defaults.ListenAddr
}

type runRequest struct {
	AccountID        uint64   `json:"account_id" binding:"required"`
	StartNonce       uint64   `json:"start_nonce"`
	NonceCount       uint64   `json:"nonce_count" binding:"required"`
	OutputDir        string   `json:"output_dir" binding:"required"`
	MemoryBudget     uint64   `json:"memory_budget"`
	CPUWorkerCount   int      `json:"cpu_worker_count"`
	AcceleratorSpecs []string `json:"accelerator_specs"`
	DirectIO         bool     `json:"direct_io"`
	BenchmarkMode    bool     `json:"benchmark_mode"`
}

type runState struct {
	mu       sync.Mutex
	stop     *plot.StopSignal
	messages []plot.ProgressMessage
	done     bool
	err      string
}

type server struct {
	mu   sync.Mutex
	runs map[string]*runState
}

func newServer() *server {
	return &server{runs: make(map[string]*runState)}
}

func (s *server) handleCreateRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	specs := make([]plot.AcceleratorSpec, len(req.AcceleratorSpecs))
	for i, spec := range req.AcceleratorSpecs {
		specs[i] = plot.AcceleratorSpec(spec)
	}

	progress := make(chan plot.ProgressMessage, 256)
	stop := plot.NewStopSignal()
	state := &runState{stop: stop}

	task := plot.Task{
		AccountID:        req.AccountID,
		StartNonce:       req.StartNonce,
		NonceCount:       req.NonceCount,
		OutputDir:        req.OutputDir,
		MemoryBudget:     req.MemoryBudget,
		CPUWorkerCount:   req.CPUWorkerCount,
		AcceleratorSpecs: specs,
		DirectIO:         req.DirectIO,
		BenchmarkMode:    req.BenchmarkMode,
		StopSignal:       stop,
		Progress:         progress,
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.runs[id] = state
	s.mu.Unlock()

	go func() {
		for msg := range progress {
			state.mu.Lock()
			state.messages = append(state.messages, msg)
			state.mu.Unlock()
		}
	}()

	go func() {
		err := plot.Run(task)
		close(progress)
		state.mu.Lock()
		state.done = true
		if err != nil {
			state.err = err.Error()
		}
		state.mu.Unlock()
	}()

	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}

func (s *server) handleGetRun(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	state, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run id"})
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	sinceStr := c.DefaultQuery("since", "0")
	since, _ := strconv.Atoi(sinceStr)
	if since < 0 || since > len(state.messages) {
		since = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"done":     state.done,
		"error":    state.err,
		"messages": state.messages[since:],
		"count":    len(state.messages),
	})
}

func (s *server) handleStopRun(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	state, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run id"})
		return
	}

	state.stop.Stop()
	c.JSON(http.StatusAccepted, gin.H{"stopping": true})
}

func main() {
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := newServer()
	router.POST("/runs", s.handleCreateRun)
	router.GET("/runs/:id", s.handleGetRun)
	router.POST("/runs/:id/stop", s.handleStopRun)
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	log.Printf("plotd: listening on %s", *listenAddr)
	if err := router.Run(*listenAddr); err != nil {
		log.Fatal(fmt.Errorf("plotd: %w", err))
	}
}
