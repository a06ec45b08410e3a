// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package backend

import (
	"log/slog"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/backend/profile"
)

// ID names a backend.
type ID = backend.ID

// Well-known backend ids.
const (
	CpuRef = backend.CpuRef
	GpuAcc = backend.GpuAcc
)

// Backend is an execution target known to the compiler.
type Backend = backend.Backend

// LayerSupport holds the per-layer-type capability predicates of a backend.
type LayerSupport = backend.LayerSupport

// LayerSupportBase rejects every layer type. Embed it and override the
// predicates a backend implements.
type LayerSupportBase = backend.LayerSupportBase

// SupportResult is the answer of one backend to one layer.
type SupportResult = backend.SupportResult

// Registry maps ids to backends. It is read-only once built and may be
// shared by concurrent compilations.
type Registry = backend.Registry

// NewRegistry creates a registry holding backends. A nil logger uses
// slog.Default(); rejections are logged at debug level.
//
// Example:
//
//	reg, err := backend.NewRegistry(slog.Default(), cpu.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewRegistry(logger *slog.Logger, backends ...Backend) (*Registry, error) {
	return backend.NewRegistry(logger, backends...)
}

// Rule constrains one layer type of a Profile. Empty lists and a zero
// MaxRank do not constrain anything.
type Rule = profile.Rule

// Profile declares the capabilities of a backend as data. Layer types
// without a rule are rejected.
type Profile = profile.Profile

// ProfileBackend serves a Profile.
type ProfileBackend = profile.Backend

// NewProfile creates a backend from a capability profile.
func NewProfile(p Profile) (*ProfileBackend, error) {
	return profile.New(p)
}
