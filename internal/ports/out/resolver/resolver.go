package resolver

import (
	"context"
	"errors"
)

// ErrResolutionFailed indicates the distance lookup did not return a usable route.
// Adapters wrap it with the upstream status.
var ErrResolutionFailed = errors.New("route resolution failed")

type TravelMode string

const TravelModeDriving TravelMode = "DRIVING"

type UnitSystem string

const UnitSystemImperial UnitSystem = "IMPERIAL"

// Preferences are the travel options sent with every lookup.
type Preferences struct {
	Mode       TravelMode
	Units      UnitSystem
	AvoidTolls bool
}

// DefaultPreferences is driving, imperial units, tolls allowed.
func DefaultPreferences() Preferences {
	return Preferences{Mode: TravelModeDriving, Units: UnitSystemImperial}
}

type Request struct {
	Origin      string
	Destination string
	Preferences Preferences
}

// Route is a successful lookup result.
type Route struct {
	// OneWayMiles is the unrounded one-way driving distance.
	OneWayMiles float64
	// HasTolls is true if any step's instructions mention a toll.
	HasTolls bool
}

// Resolver resolves the one-way driving distance between two addresses.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (Route, error)
}
