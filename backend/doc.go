// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package backend exposes the capability registry the compiler queries when
// it assigns layers to execution targets.
//
// # Overview
//
// A Backend is an id plus a LayerSupport value: one predicate per layer type
// answering whether the backend can run a layer with given tensor
// descriptors, and why not when it cannot. The compiler tries candidate
// backends in priority order and picks the first one that accepts.
//
// Two kinds of backends ship with the module:
//   - backend/cpu: the CpuRef reference backend
//   - NewProfile: backends whose capabilities are declared as data
//
// # Basic Usage
//
//	npu, err := backend.NewProfile(backend.Profile{
//	    ID: "NpuAcc",
//	    Rules: map[network.LayerType]backend.Rule{
//	        network.LayerConvolution2d: {DataTypes: []tensor.DataType{tensor.QAsymmU8}},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg, err := backend.NewRegistry(nil, cpu.New(), npu)
//
// Custom backends implement Backend and embed LayerSupportBase in their
// LayerSupport so that layer types they do not handle are rejected.
package backend
