package geoloc

import (
	"context"
	"net"

	"github.com/NESSBZID/bncho/internal/model"
)

// Resolver provides IP geolocation that can be mocked for testing
type Resolver interface {
	// Resolve returns the location for an IP, or ok=false when the
	// address cannot be located (private ranges, lookup failure).
	Resolve(ctx context.Context, ip string) (model.Geolocation, bool)
}

// NopResolver is a Resolver that locates nothing. Used when no
// geolocation backend is configured; sessions simply carry a zero
// location.
type NopResolver struct{}

// New creates a new NopResolver
func New() *NopResolver {
	return &NopResolver{}
}

func (r *NopResolver) Resolve(_ context.Context, ip string) (model.Geolocation, bool) {
	if net.ParseIP(ip) == nil {
		return model.Geolocation{}, false
	}
	return model.Geolocation{}, false
}
