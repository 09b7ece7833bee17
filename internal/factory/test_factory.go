package factory

import (
	"log/slog"
	"time"

	"github.com/mcoot/tileworld/internal/config"
	"github.com/mcoot/tileworld/internal/dependencies/mocks"
	"github.com/mcoot/tileworld/internal/feed"
	"github.com/mcoot/tileworld/internal/storage"
	"github.com/mcoot/tileworld/internal/storage/memory"
	"github.com/mcoot/tileworld/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs
}

// TestOption customizes NewTestApp
type TestOption func(*testOptions)

type testOptions struct {
	store  storage.ProfileStore
	feed   feed.Publisher
	cfg    config.Config
	logger *slog.Logger
}

// WithStore replaces the default in-memory store
func WithStore(store storage.ProfileStore) TestOption {
	return func(o *testOptions) { o.store = store }
}

// WithFeed sets the presence feed publisher
func WithFeed(p feed.Publisher) TestOption {
	return func(o *testOptions) { o.feed = p }
}

// WithConfig overrides the default configuration
func WithConfig(cfg config.Config) TestOption {
	return func(o *testOptions) { o.cfg = cfg }
}

// WithLogger sets the application logger
func WithLogger(logger *slog.Logger) TestOption {
	return func(o *testOptions) { o.logger = logger }
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// It is not started; call Start and Close around the test.
func NewTestApp(opts ...TestOption) *TestApp {
	o := testOptions{
		store:  memory.New(),
		feed:   feed.Nop{},
		cfg:    config.Default(),
		logger: testutil.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()

	app := newWithDependencies(o.store, mockClock, mockIDs, o.feed, o.cfg, o.logger)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
	}
}
