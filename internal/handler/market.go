package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/service"
)

// MarketHandler serves the market routes. It is a thin caller of the
// market core: parse, delegate, map errors.
type MarketHandler struct {
	markets *service.MarketService
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets *service.MarketService) *MarketHandler {
	return &MarketHandler{markets: markets}
}

type standingOrderRequest struct {
	Owner    string `json:"owner"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type instantTradeRequest struct {
	Owner    string `json:"owner"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
}

type instantTradeResponse struct {
	QuantityExchanged  int64 `json:"quantity_exchanged"`
	TotalConsideration int64 `json:"total_consideration"`
}

type orderResponse struct {
	Owner     string    `json:"owner"`
	Side      string    `json:"side"`
	Price     int64     `json:"price"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type orderPageResponse struct {
	Items        []orderResponse `json:"items"`
	PageNext     *int64          `json:"page_next,omitempty"`
	PagePrevious *int64          `json:"page_previous,omitempty"`
	Total        int64           `json:"total"`
}

type depthLevelResponse struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
}

type tradeResponse struct {
	Price      int64     `json:"price"`
	Quantity   int64     `json:"quantity"`
	ExecutedAt time.Time `json:"executed_at"`
}

// PlaceOrder handles POST /systems/{system}/market/{resource}/orders.
func (h *MarketHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req standingOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	side, err := service.ParseSide(req.Side)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	err = h.markets.PlaceStandingOrder(r.Context(), service.StandingOrderRequest{
		System:   chi.URLParam(r, "system"),
		Resource: chi.URLParam(r, "resource"),
		Owner:    req.Owner,
		Side:     side,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"status": "accepted"})
}

// InstantTrade handles POST /systems/{system}/market/{resource}/trades.
func (h *MarketHandler) InstantTrade(w http.ResponseWriter, r *http.Request) {
	var req instantTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	side, err := service.ParseSide(req.Side)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	summary, err := h.markets.InstantTrade(r.Context(), service.InstantTradeRequest{
		System:   chi.URLParam(r, "system"),
		Resource: chi.URLParam(r, "resource"),
		Owner:    req.Owner,
		Side:     side,
		Quantity: req.Quantity,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, instantTradeResponse{
		QuantityExchanged:  summary.QuantityExchanged,
		TotalConsideration: summary.TotalConsideration,
	})
}

// CancelOrder handles DELETE /systems/{system}/market/{resource}/orders.
// The order is identified by owner, side, and price query parameters.
func (h *MarketHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	side, err := service.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	price, err := queryInt64Ptr(r, "price")
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if price == nil {
		WriteDomainError(w, &domain.ValidationError{Message: "price is required"})
		return
	}

	err = h.markets.CancelStandingOrder(r.Context(), service.CancelOrderRequest{
		System:   chi.URLParam(r, "system"),
		Resource: chi.URLParam(r, "resource"),
		Owner:    r.URL.Query().Get("owner"),
		Side:     side,
		Price:    *price,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// ListOrders handles GET /systems/{system}/market/{resource}/orders.
// With ?owner= it returns that owner's resting orders; otherwise a
// cursor-paginated page of the book.
func (h *MarketHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	side, err := service.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	system := chi.URLParam(r, "system")
	resource := chi.URLParam(r, "resource")

	if owner := r.URL.Query().Get("owner"); owner != "" {
		orders, err := h.markets.MyOrders(r.Context(), system, resource, side, owner)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, toOrderResponses(orders))
		return
	}

	pageNext, err := queryInt64Ptr(r, "page_next")
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	pagePrevious, err := queryInt64Ptr(r, "page_previous")
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 0)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	page, err := h.markets.ListOrders(r.Context(), system, resource, side, pageNext, pagePrevious, pageSize)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, orderPageResponse{
		Items:        toOrderResponses(page.Items),
		PageNext:     page.PageNext,
		PagePrevious: page.PagePrevious,
		Total:        page.Total,
	})
}

// Depth handles GET /systems/{system}/market/{resource}/depth.
func (h *MarketHandler) Depth(w http.ResponseWriter, r *http.Request) {
	side, err := service.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	levels, err := h.markets.Depth(r.Context(), chi.URLParam(r, "system"), chi.URLParam(r, "resource"), side, limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	out := make([]depthLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = depthLevelResponse{Price: l.Price, Quantity: l.Quantity}
	}
	WriteJSON(w, http.StatusOK, out)
}

// RecentTrades handles GET /systems/{system}/market/{resource}/trades.
func (h *MarketHandler) RecentTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	trades, err := h.markets.RecentTrades(r.Context(), chi.URLParam(r, "system"), chi.URLParam(r, "resource"), limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	out := make([]tradeResponse, len(trades))
	for i, t := range trades {
		out[i] = tradeResponse{Price: t.Price, Quantity: t.Quantity, ExecutedAt: t.ExecutedAt}
	}
	WriteJSON(w, http.StatusOK, out)
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = orderResponse{
			Owner:     o.Owner,
			Side:      string(o.Side),
			Price:     o.Price,
			Quantity:  o.Quantity,
			CreatedAt: o.CreatedAt,
		}
	}
	return out
}

func queryInt64Ptr(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &domain.ValidationError{Message: name + " must be an integer"}
	}
	return &n, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Message: name + " must be an integer"}
	}
	return n, nil
}
