package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/engine"
	"github.com/lberndt/galaxytrade/internal/gamedata"
	"github.com/lberndt/galaxytrade/internal/store"
)

// Default result sizes for the read queries.
const (
	DefaultDepthLimit = 10
	DefaultTradeLimit = 5
	DefaultPageSize   = 20
	MaxDepthLimit     = 100
	MaxTradeLimit     = 100
	MaxPageSize       = 100
)

// StandingOrderRequest places or extends a resting order. Submitting the
// same owner/side/price again merges quantities.
type StandingOrderRequest struct {
	System   string
	Resource string
	Owner    string
	Side     domain.Side
	Price    int64
	Quantity int64
}

// CancelOrderRequest withdraws a resting order by its natural key.
type CancelOrderRequest struct {
	System   string
	Resource string
	Owner    string
	Side     domain.Side
	Price    int64
}

// InstantTradeRequest executes immediately against the book; whatever
// cannot be filled is not transacted and nothing rests.
type InstantTradeRequest struct {
	System   string
	Resource string
	Owner    string
	Side     domain.Side
	Quantity int64
}

// TradeSummary is the caller-visible outcome of an instant trade.
type TradeSummary struct {
	QuantityExchanged  int64
	TotalConsideration int64
}

// MarketService exposes the market operations over the matching engine and
// the persisted book, validating markets against the static game data.
type MarketService struct {
	data    *gamedata.Registry
	matcher *engine.Matcher
	db      *store.DB
	orders  *store.OrderStore
	trades  *store.TradeStore
}

// NewMarketService creates a MarketService with the given dependencies.
func NewMarketService(data *gamedata.Registry, matcher *engine.Matcher, db *store.DB, orders *store.OrderStore, trades *store.TradeStore) *MarketService {
	return &MarketService{
		data:    data,
		matcher: matcher,
		db:      db,
		orders:  orders,
		trades:  trades,
	}
}

// validateMarket checks that the system exists, hosts a station, and that
// the resource is tradable. These are caller-correctable failures raised
// before any state change.
func (s *MarketService) validateMarket(system, resource string) error {
	sys, ok := s.data.System(system)
	if !ok {
		return domain.ErrUnknownSystem
	}
	if !sys.HasStation {
		return domain.ErrNoStation
	}
	if _, ok := s.data.Resource(resource); !ok {
		return domain.ErrUnknownResource
	}
	return nil
}

// PlaceStandingOrder matches the submission against the book and rests any
// unmatched remainder at the submitted price, merging with an existing
// order at the same owner/side/price.
func (s *MarketService) PlaceStandingOrder(ctx context.Context, req StandingOrderRequest) error {
	if err := s.validateMarket(req.System, req.Resource); err != nil {
		return err
	}
	if req.Price < 0 {
		return &domain.ValidationError{Message: "price must not be negative"}
	}
	if req.Quantity <= 0 {
		return &domain.ValidationError{Message: "quantity must be positive"}
	}
	if req.Owner == "" {
		return &domain.ValidationError{Message: "owner is required"}
	}

	_, err := s.matcher.Execute(ctx, engine.Submission{
		System:     req.System,
		Resource:   req.Resource,
		Owner:      req.Owner,
		Side:       req.Side,
		Quantity:   req.Quantity,
		LimitPrice: req.Price,
	})
	return err
}

// CancelStandingOrder withdraws the owner's resting order at one price
// level. The order's full remaining quantity is removed; partial reduction
// is done by cancelling and resubmitting.
func (s *MarketService) CancelStandingOrder(ctx context.Context, req CancelOrderRequest) error {
	if err := s.validateMarket(req.System, req.Resource); err != nil {
		return err
	}
	if !req.Side.Valid() {
		return &domain.ValidationError{Message: "side must be buy or sell"}
	}
	if req.Owner == "" {
		return &domain.ValidationError{Message: "owner is required"}
	}
	if req.Price < 0 {
		return &domain.ValidationError{Message: "price must not be negative"}
	}
	return s.matcher.Cancel(ctx, req.System, req.Resource, req.Owner, req.Side, req.Price)
}

// InstantTrade fills as much of the requested quantity as the book and the
// owner's funds allow, and reports the exact amounts exchanged.
func (s *MarketService) InstantTrade(ctx context.Context, req InstantTradeRequest) (TradeSummary, error) {
	if err := s.validateMarket(req.System, req.Resource); err != nil {
		return TradeSummary{}, err
	}
	if req.Quantity <= 0 {
		return TradeSummary{}, &domain.ValidationError{Message: "quantity must be positive"}
	}
	if req.Owner == "" {
		return TradeSummary{}, &domain.ValidationError{Message: "owner is required"}
	}

	res, err := s.matcher.Execute(ctx, engine.Submission{
		System:    req.System,
		Resource:  req.Resource,
		Owner:     req.Owner,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Immediate: true,
	})
	if err != nil {
		return TradeSummary{}, err
	}
	return TradeSummary{
		QuantityExchanged:  res.QuantityExchanged,
		TotalConsideration: res.TotalConsideration,
	}, nil
}

// Depth returns aggregated book depth for one side, best price first,
// truncated to limit levels.
func (s *MarketService) Depth(ctx context.Context, system, resource string, side domain.Side, limit int) ([]domain.PriceLevel, error) {
	if err := s.validateMarket(system, resource); err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, &domain.ValidationError{Message: "side must be buy or sell"}
	}
	limit = clamp(limit, DefaultDepthLimit, MaxDepthLimit)

	var levels []domain.PriceLevel
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		levels, err = s.orders.Depth(tx, system, resource, side, limit)
		return err
	})
	return levels, err
}

// MyOrders returns the owner's resting orders on one side of a market.
func (s *MarketService) MyOrders(ctx context.Context, system, resource string, side domain.Side, owner string) ([]domain.Order, error) {
	if err := s.validateMarket(system, resource); err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, &domain.ValidationError{Message: "side must be buy or sell"}
	}
	if owner == "" {
		return nil, &domain.ValidationError{Message: "owner is required"}
	}

	var orders []domain.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		orders, err = s.orders.ListByOwner(tx, system, resource, side, owner)
		return err
	})
	return orders, err
}

// ListOrders returns a cursor-paginated page of one side of the book.
// Cursors are boundary prices; supplying both is a validation error.
func (s *MarketService) ListOrders(ctx context.Context, system, resource string, side domain.Side, pageNext, pagePrevious *int64, pageSize int) (*store.Page, error) {
	if err := s.validateMarket(system, resource); err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, &domain.ValidationError{Message: "side must be buy or sell"}
	}
	pageSize = clamp(pageSize, DefaultPageSize, MaxPageSize)

	var page *store.Page
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		page, err = s.orders.List(tx, system, resource, side, pageNext, pagePrevious, pageSize)
		return err
	})
	return page, err
}

// RecentTrades returns the latest executed trades on a market, newest
// first, truncated to limit.
func (s *MarketService) RecentTrades(ctx context.Context, system, resource string, limit int) ([]domain.Trade, error) {
	if err := s.validateMarket(system, resource); err != nil {
		return nil, err
	}
	limit = clamp(limit, DefaultTradeLimit, MaxTradeLimit)

	var trades []domain.Trade
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		trades, err = s.trades.Recent(tx, system, resource, limit)
		return err
	})
	return trades, err
}

func clamp(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ParseSide converts a raw string into a Side or a validation error.
func ParseSide(raw string) (domain.Side, error) {
	side := domain.Side(raw)
	if !side.Valid() {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("unknown side: %q, must be one of: buy, sell", raw),
		}
	}
	return side, nil
}
