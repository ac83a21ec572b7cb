package mocks

import (
	"context"

	"github.com/NESSBZID/bncho/internal/dependencies/geoloc"
	"github.com/NESSBZID/bncho/internal/model"
)

// MockGeoloc is a mock implementation of geoloc.Resolver for testing
type MockGeoloc struct {
	Locations map[string]model.Geolocation
}

// Ensure MockGeoloc implements Resolver
var _ geoloc.Resolver = (*MockGeoloc)(nil)

// NewMockGeoloc creates an empty MockGeoloc
func NewMockGeoloc() *MockGeoloc {
	return &MockGeoloc{Locations: make(map[string]model.Geolocation)}
}

// Locate registers a location for an IP
func (g *MockGeoloc) Locate(ip string, loc model.Geolocation) {
	g.Locations[ip] = loc
}

// Resolve returns the registered location for the IP, if any
func (g *MockGeoloc) Resolve(_ context.Context, ip string) (model.Geolocation, bool) {
	loc, ok := g.Locations[ip]
	return loc, ok
}
