// Package scenario implements the load-generation unit of work: a Scenario
// is a set of Journeys run on a recurring interval, partitioned across the
// live cluster and spawned as background executions against fresh
// execctx.Contexts.
package scenario

import (
	"context"

	"github.com/ryan-h265/ironswarm/pkg/datapool"
	"github.com/ryan-h265/ironswarm/pkg/execctx"
	"github.com/ryan-h265/ironswarm/pkg/volume"
)

// JourneyFunc is the user-supplied request flow a Journey drives: given an
// execution context and (if the journey has a datapool) one checked-out
// item, it performs whatever HTTP calls the scenario author wants.
//
// A journey spec names a JourneyFunc but carries no dynamic-loading
// mechanism of its own: callers resolve it against a caller-supplied
// Registry. The spec string itself is kept regardless, since it is still
// the partitioning and metrics label key the rest of the system
// understands.
type JourneyFunc func(ctx context.Context, execCtx *execctx.Context, item any) error

// Registry resolves a journey spec string to the function that implements
// it.
type Registry map[string]JourneyFunc

// Resolve looks up spec, returning false if nothing is registered under it.
func (r Registry) Resolve(spec string) (JourneyFunc, bool) {
	fn, ok := r[spec]
	return fn, ok
}

// Journey pairs a journey spec with the optional datapool it draws request
// data from and the volume model that paces it.
type Journey struct {
	Spec        string
	Datapool    datapool.Datapool // nil when the journey needs no input data
	VolumeModel volume.Model
}

// Scenario is a set of journeys run together on a shared clock.
type Scenario struct {
	Name              string
	Journeys          []Journey
	Interval          int     // seconds per work interval
	Delay             int     // seconds before the scenario's clock starts
	JourneySeparation float64 // seconds between sub-interval spawns
}
