package factory

import (
	"time"

	"github.com/NESSBZID/bncho/internal/api"
	"github.com/NESSBZID/bncho/internal/bancho"
	"github.com/NESSBZID/bncho/internal/dependencies/mocks"
	"github.com/NESSBZID/bncho/internal/storage/memory"
	"github.com/NESSBZID/bncho/internal/testutil"
	"github.com/NESSBZID/bncho/internal/transport"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockGeoloc *mocks.MockGeoloc

	// MemoryStorage is the Storage field with its concrete type.
	MemoryStorage *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockGeoloc := mocks.NewMockGeoloc()

	transportCfg := transport.DefaultConfig()
	transportCfg.Addr = "127.0.0.1:0"
	apiCfg := api.DefaultConfig()
	apiCfg.Addr = "127.0.0.1:0"

	app := newWithDependencies(
		store,
		mockClock,
		mockRandom,
		mockGeoloc,
		bancho.DefaultConfig(),
		transportCfg,
		apiCfg,
		testutil.NopLogger(),
	)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MockGeoloc:    mockGeoloc,
		MemoryStorage: store,
	}
}
