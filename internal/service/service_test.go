package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"pharmacy-ops/config"
	"pharmacy-ops/internal/idalloc"
	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	mu        sync.Mutex
	completed []*models.OrderCompletedEvent
	adjusted  []*models.StockAdjustedEvent
	ended     []*models.ShiftEndedEvent
}

func (p *recordingPublisher) PublishOrderCompleted(_ context.Context, e *models.OrderCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, e)
	return nil
}

func (p *recordingPublisher) PublishStockAdjusted(_ context.Context, e *models.StockAdjustedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adjusted = append(p.adjusted, e)
	return nil
}

func (p *recordingPublisher) PublishShiftEnded(_ context.Context, e *models.ShiftEndedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, e)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// testEnv wires every service over one temporary data directory
type testEnv struct {
	t        *testing.T
	dir      string
	store    *store.Store
	ids      *idalloc.Registry
	catalog  *Catalog
	roster   *Roster
	ledger   *Ledger
	shifts   *ShiftManager
	checkout *Checkout
	sessions *MemorySessions
	events   *recordingPublisher
	clock    *fakeClock
	logs     *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, t.TempDir())
}

// newTestEnvAt builds fresh services over an existing data directory, as a
// restarted process would
func newTestEnvAt(t *testing.T, dir string) *testEnv {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	st, err := store.NewStore(config.DefaultStorage(dir), logger)
	require.NoError(t, err)

	env := &testEnv{
		t:        t,
		dir:      dir,
		store:    st,
		ids:      idalloc.NewRegistry(),
		sessions: NewMemorySessions(),
		events:   &recordingPublisher{},
		clock:    &fakeClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.Local)},
		logs:     logs,
	}

	env.catalog = NewCatalog(st, env.ids.For(idalloc.EntityProduct), env.events, 10, logger)
	env.roster = NewRoster(st, env.ids.For(idalloc.EntityCustomer), logger)
	env.ledger = NewLedger(st, env.ids.For(idalloc.EntityOrder), env.catalog, env.roster, env.events, logger)
	env.ledger.SetClock(env.clock.Now)
	env.shifts = NewShiftManager(st, env.ledger, env.sessions, env.events, logger)
	env.shifts.SetClock(env.clock.Now)
	env.checkout = NewCheckout(env.ledger, env.catalog, env.shifts, logger)
	return env
}

// load reads every data file in startup order
func (e *testEnv) load() {
	e.t.Helper()
	ctx := context.Background()
	require.NoError(e.t, e.catalog.Load(ctx))
	_, err := e.roster.LoadAll(ctx)
	require.NoError(e.t, err)
	history, err := e.ledger.LoadAll(ctx)
	require.NoError(e.t, err)
	require.NoError(e.t, e.ledger.LoadLines(ctx, history...))
	require.NoError(e.t, e.shifts.LoadState(ctx))
	require.NoError(e.t, e.shifts.LoadMembership(ctx))
}

// restart builds a new environment over the same data directory and loads it
func (e *testEnv) restart() *testEnv {
	e.t.Helper()
	next := newTestEnvAt(e.t, e.dir)
	next.clock.now = e.clock.now
	next.load()
	return next
}

func (e *testEnv) addProduct(name, price string, qty int) *models.Product {
	e.t.Helper()
	p, err := e.catalog.Create(context.Background(), NewProduct{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		Kind:     models.KindMedicine,
	})
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) addCustomer(name string) *models.Customer {
	e.t.Helper()
	c, err := e.roster.Create(context.Background(), name, "0100000000")
	require.NoError(e.t, err)
	return c
}

// sell opens, fills and checks out an order
func (e *testEnv) sell(customer *models.Customer, lines map[int64]int) *models.Order {
	e.t.Helper()
	ctx := context.Background()
	order, err := e.ledger.Open(ctx, customer, "alice")
	require.NoError(e.t, err)
	for productID, qty := range lines {
		require.NoError(e.t, e.ledger.AddLine(ctx, order, productID, qty))
	}
	result, err := e.checkout.Complete(ctx, order)
	require.NoError(e.t, err)
	require.Empty(e.t, result.Problems)
	return order
}

// breakFile replaces a data file with a directory so writes to it fail
func (e *testEnv) breakFile(name string) {
	e.t.Helper()
	path := e.store.Path(name)
	require.NoError(e.t, os.RemoveAll(path))
	require.NoError(e.t, os.MkdirAll(path+"/blocker", 0o755))
}

func (e *testEnv) readFile(name string) string {
	e.t.Helper()
	data, err := os.ReadFile(e.store.Path(name))
	require.NoError(e.t, err)
	return string(data)
}

func (e *testEnv) warnings(msg string) int {
	return e.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage(msg).Len()
}
