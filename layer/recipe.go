// Package layer provides the catalog of Lambda layer packaging recipes.
//
// A recipe says where a layer's source lives, which runtimes it serves and how
// the deployment engine should package it. Factory methods on Catalog hand a
// recipe to a Provisioner, which records it and returns a Handle; nothing is
// built or uploaded here.
package layer

import (
	"slices"
)

// Runtime is a Lambda runtime identifier.
type Runtime string

// RuntimePython312 is the python3.12 Lambda runtime.
const RuntimePython312 Runtime = "python3.12"

// BundlingImage returns the SAM build image matching the runtime.
func (r Runtime) BundlingImage() string {
	return "public.ecr.aws/sam/build-" + string(r)
}

// String returns the runtime identifier.
func (r Runtime) String() string {
	return string(r)
}

// Kind selects how a recipe is packaged.
type Kind int

const (
	// KindExplicit runs an explicit shell command in a bundling container.
	KindExplicit Kind = iota + 1
	// KindAutoResolve hands the source tree to the provisioner's own
	// dependency-resolving packager.
	KindAutoResolve
)

// String returns the kind's name as used in listings and asset manifests.
func (k Kind) String() string {
	switch k {
	case KindExplicit:
		return "explicit"
	case KindAutoResolve:
		return "auto-resolve"
	default:
		return "unknown"
	}
}

// Packaging is a tagged variant: Image and Command are set for KindExplicit,
// Excludes may be set for KindAutoResolve.
type Packaging struct {
	Kind     Kind
	Image    string
	Command  []string
	Excludes []string
}

// Recipe describes how to produce one deployable layer artifact.
type Recipe struct {
	// ID names the registration (construct id / logical id).
	ID          string
	SourcePath  string
	Runtimes    []Runtime
	Description string
	Packaging   Packaging
}

// Clone returns a deep copy so provisioners can keep a recipe without
// sharing slices with the catalog.
func (r Recipe) Clone() Recipe {
	r.Runtimes = slices.Clone(r.Runtimes)
	r.Packaging.Command = slices.Clone(r.Packaging.Command)
	r.Packaging.Excludes = slices.Clone(r.Packaging.Excludes)
	return r
}

// RuntimeNames returns the runtime identifiers as strings.
func (r Recipe) RuntimeNames() []string {
	names := make([]string, len(r.Runtimes))
	for i, rt := range r.Runtimes {
		names[i] = rt.String()
	}
	return names
}

// Provisioner registers artifact-production requests. Implementations own
// deduplication, caching and every failure mode of packaging.
type Provisioner interface {
	RegisterLayer(r Recipe) Handle
}

// Handle refers to a registered, not yet materialized, layer artifact.
type Handle interface {
	// ID is the identifier the provisioner assigned to this registration.
	ID() string
	// Recipe is the recipe as recorded by the provisioner.
	Recipe() Recipe
}
