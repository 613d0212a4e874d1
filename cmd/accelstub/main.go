// Hasher: Neural Inference Engine Powered by SHA-256 ASICs
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command accelstub is a reference implementation of the accelerator
// driver contract of spec §4.D: it satisfies accel.Server by running
// the same nonce kernel the CPU worker pool uses, over the gRPC
// transport the scheduler's AcceleratorWorker dials. A real ASIC/GPU
// driver would replace the body of Compute with a hardware-backed
// implementation while keeping the same wire contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"plotgen/pkg/plot/accel"
	"plotgen/pkg/plot/kernel"
)

var (
	port     = flag.Int("port", 9100, "gRPC listen port")
	worksize = flag.Uint64("worksize", 4096, "nonces processed per Compute call")
	width    = flag.Int("width", 0, "kernel SIMD width shown in the startup log (0 = auto-detect widest supported); Compute always runs the scalar kernel")
)

type server struct {
	worksize uint64
	width    kernel.Width
}

func (s *server) Handshake(context.Context, *accel.HandshakeRequest) (*accel.HandshakeResponse, error) {
	return &accel.HandshakeResponse{
		Name:        "accelstub",
		Worksize:    s.worksize,
		MemoryBytes: s.worksize * kernel.NonceSize,
		Operational: true,
	}, nil
}

func (s *server) Compute(_ context.Context, req *accel.ComputeRequest) (*accel.ComputeResponse, error) {
	if req.Count > s.worksize {
		return nil, fmt.Errorf("accelstub: count %d exceeds advertised worksize %d", req.Count, s.worksize)
	}

	data := make([]byte, int(req.Count)*kernel.NonceSize)
	// Emit raw per-nonce "W" buffers (pre-placement); the caller applies
	// kernel.Place itself, matching what a local CPU sub-range produces
	// before placement.
	for k := 0; k < int(req.Count); k++ {
		kernel.Compute(req.AccountID, req.StartNonce+uint64(k), data[k*kernel.NonceSize:(k+1)*kernel.NonceSize])
	}

	return &accel.ComputeResponse{Data: data}, nil
}

func (s *server) Heartbeat(context.Context, *accel.HeartbeatRequest) (*accel.HeartbeatResponse, error) {
	return &accel.HeartbeatResponse{At: accel.Now(), Healthy: true}, nil
}

func main() {
	flag.Parse()

	w := kernel.Width(*width)
	if w == 0 {
		w = kernel.BestWidth()
	}
	log.Printf("accelstub: kernel width %s, worksize %d", w, *worksize)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		log.Fatalf("accelstub: listen: %v", err)
	}

	s := grpc.NewServer()
	accel.RegisterServer(s, &server{worksize: *worksize, width: w})
	reflection.Register(s)

	log.Printf("accelstub: serving on :%d", *port)
	if err := s.Serve(lis); err != nil {
		log.Fatalf("accelstub: serve: %v", err)
	}
}
