package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/engine"
	"github.com/lberndt/galaxytrade/internal/gamedata"
	"github.com/lberndt/galaxytrade/internal/ledger"
	"github.com/lberndt/galaxytrade/internal/locks"
	"github.com/lberndt/galaxytrade/internal/store"
)

const testGameData = `
systems:
  - id: sol
    name: Sol
    has_station: true
  - id: barnard
    name: Barnard's Star
    has_station: false
resources:
  - id: aluminium
    name: Aluminium
ship_types:
  - id: shuttle
    name: Shuttle
`

type testEnv struct {
	db        *store.DB
	markets   *MarketService
	transfers *TransferService
	balances  *store.BalanceStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	data, err := gamedata.Parse([]byte(testGameData))
	if err != nil {
		t.Fatalf("failed to parse game data: %v", err)
	}
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	balances := store.NewBalanceStore()
	orders := store.NewOrderStore()
	trades := store.NewTradeStore()
	lockSet := locks.NewSet(5 * time.Second)
	led := ledger.New(balances, lockSet)
	matcher := engine.NewMatcher(db, led, orders, trades, engine.NewMarketLocks(lockSet))

	return &testEnv{
		db:        db,
		markets:   NewMarketService(data, matcher, db, orders, trades),
		transfers: NewTransferService(db, led, balances),
		balances:  balances,
	}
}

func (e *testEnv) fund(t *testing.T, account, good string, qty int64) {
	t.Helper()
	err := e.db.Transaction(func(tx *gorm.DB) error {
		return e.balances.Put(tx, account, good, decimal.NewFromInt(qty))
	})
	if err != nil {
		t.Fatalf("failed to fund %s: %v", account, err)
	}
}

func TestPlaceStandingOrder_UnknownMarket(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		system   string
		resource string
		want     error
	}{
		{"unknown system", "vega", "aluminium", domain.ErrUnknownSystem},
		{"no station", "barnard", "aluminium", domain.ErrNoStation},
		{"unknown resource", "sol", "spice", domain.ErrUnknownResource},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.markets.PlaceStandingOrder(ctx, StandingOrderRequest{
				System: tc.system, Resource: tc.resource,
				Owner: "alice", Side: domain.SideSell, Price: 10, Quantity: 1,
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPlaceStandingOrder_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  StandingOrderRequest
	}{
		{"negative price", StandingOrderRequest{System: "sol", Resource: "aluminium", Owner: "alice", Side: domain.SideSell, Price: -1, Quantity: 1}},
		{"zero quantity", StandingOrderRequest{System: "sol", Resource: "aluminium", Owner: "alice", Side: domain.SideSell, Price: 10, Quantity: 0}},
		{"missing owner", StandingOrderRequest{System: "sol", Resource: "aluminium", Side: domain.SideSell, Price: 10, Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.markets.PlaceStandingOrder(ctx, tc.req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestInstantTrade_FlowAndDepth(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.fund(t, domain.CargoAccount("alice", "sol"), "aluminium", 10)
	e.fund(t, domain.CurrencyAccount("bob"), domain.GoodCredits, 100)

	err := e.markets.PlaceStandingOrder(ctx, StandingOrderRequest{
		System: "sol", Resource: "aluminium",
		Owner: "alice", Side: domain.SideSell, Price: 7, Quantity: 10,
	})
	if err != nil {
		t.Fatalf("failed to place ask: %v", err)
	}

	levels, err := e.markets.Depth(ctx, "sol", "aluminium", domain.SideSell, 0)
	if err != nil {
		t.Fatalf("depth failed: %v", err)
	}
	if len(levels) != 1 || levels[0].Price != 7 || levels[0].Quantity != 10 {
		t.Fatalf("unexpected depth: %+v", levels)
	}

	sum, err := e.markets.InstantTrade(ctx, InstantTradeRequest{
		System: "sol", Resource: "aluminium",
		Owner: "bob", Side: domain.SideBuy, Quantity: 4,
	})
	if err != nil {
		t.Fatalf("instant trade failed: %v", err)
	}
	if sum.QuantityExchanged != 4 || sum.TotalConsideration != 28 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	trades, err := e.markets.RecentTrades(ctx, "sol", "aluminium", 0)
	if err != nil {
		t.Fatalf("recent trades failed: %v", err)
	}
	if len(trades) != 1 || trades[0].Buyer != "bob" || trades[0].Seller != "alice" {
		t.Fatalf("unexpected trades: %+v", trades)
	}

	mine, err := e.markets.MyOrders(ctx, "sol", "aluminium", domain.SideSell, "alice")
	if err != nil {
		t.Fatalf("my orders failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Quantity != 6 {
		t.Fatalf("expected remaining ask of 6, got %+v", mine)
	}
}

func TestCancelStandingOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.fund(t, domain.CargoAccount("alice", "sol"), "aluminium", 5)

	err := e.markets.PlaceStandingOrder(ctx, StandingOrderRequest{
		System: "sol", Resource: "aluminium",
		Owner: "alice", Side: domain.SideSell, Price: 9, Quantity: 5,
	})
	if err != nil {
		t.Fatalf("failed to place ask: %v", err)
	}

	cancel := CancelOrderRequest{
		System: "sol", Resource: "aluminium",
		Owner: "alice", Side: domain.SideSell, Price: 9,
	}
	if err := e.markets.CancelStandingOrder(ctx, cancel); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	mine, err := e.markets.MyOrders(ctx, "sol", "aluminium", domain.SideSell, "alice")
	if err != nil {
		t.Fatalf("my orders failed: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected no resting orders, got %+v", mine)
	}

	if err := e.markets.CancelStandingOrder(ctx, cancel); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestListOrders_RejectsBothCursors(t *testing.T) {
	e := newTestEnv(t)
	next, prev := int64(5), int64(10)
	_, err := e.markets.ListOrders(context.Background(), "sol", "aluminium", domain.SideSell, &next, &prev, 0)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransfer_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		changes domain.ChangeSet
	}{
		{"empty change set", domain.ChangeSet{}},
		{"empty account id", domain.ChangeSet{"": {"fuel": 1}}},
		{"account without deltas", domain.ChangeSet{"user/alice": {}}},
		{"empty good id", domain.ChangeSet{"user/alice": {"": 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.transfers.Transfer(ctx, tc.changes)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTransfer_ShipPurchase(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.fund(t, domain.CurrencyAccount("alice"), domain.GoodCredits, 500)
	e.fund(t, "shipyard/sol", "shuttle", 3)

	changes := domain.ChangeSet{}
	changes.Add(domain.CurrencyAccount("alice"), domain.GoodCredits, -400)
	changes.Add("shipyard/sol", domain.GoodCredits, 400)
	changes.Add("shipyard/sol", "shuttle", -1)
	changes.Add(domain.FleetAccount("alice-1"), "shuttle", 1)

	if err := e.transfers.Transfer(ctx, changes); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	fleet, err := e.transfers.Holdings(ctx, domain.FleetAccount("alice-1"))
	if err != nil {
		t.Fatalf("holdings failed: %v", err)
	}
	if fleet["shuttle"] != 1 {
		t.Fatalf("expected one shuttle, got %+v", fleet)
	}

	wallet, err := e.transfers.Holdings(ctx, domain.CurrencyAccount("alice"))
	if err != nil {
		t.Fatalf("holdings failed: %v", err)
	}
	if wallet[domain.GoodCredits] != 100 {
		t.Fatalf("expected 100 credits left, got %+v", wallet)
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("buy"); err != nil || s != domain.SideBuy {
		t.Fatalf("expected buy, got %v %v", s, err)
	}
	if s, err := ParseSide("sell"); err != nil || s != domain.SideSell {
		t.Fatalf("expected sell, got %v %v", s, err)
	}
	if _, err := ParseSide("hold"); err == nil {
		t.Fatal("expected error for unknown side")
	}
}
