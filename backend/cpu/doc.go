// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CpuRef reference backend.
//
// # Overview
//
// CpuRef accepts the widest range of element types of any backend and is
// the usual last entry of a candidate list, so that every layer a device
// backend rejects still finds a home:
//
//	reg, err := backend.NewRegistry(nil, npu, cpu.New())
//	net, err := network.Optimize(g, reg, []backend.ID{"NpuAcc", backend.CpuRef}, network.Options{})
//
// Fused and StandIn layers have no reference kernel and are rejected.
package cpu
