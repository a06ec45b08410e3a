// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/graphc/internal/backend/cpu"

	"github.com/born-ml/graphc/backend"
)

// Backend is the CpuRef backend.
type Backend = internalcpu.Backend

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// New creates the reference backend.
func New() *Backend {
	return internalcpu.New()
}
