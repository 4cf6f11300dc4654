package store

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/lberndt/galaxytrade/internal/domain"
)

// OrderStore persists resting orders. Mutating methods are only called
// under the market's advisory lock inside an active transaction.
type OrderStore struct{}

// NewOrderStore creates an OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

// Page is one cursor-paginated slice of the book.
type Page struct {
	Items        []domain.Order
	PageNext     *int64 // boundary price: request prices ranked strictly after
	PagePrevious *int64 // boundary price: request prices ranked strictly before
	Total        int64  // matching rows before pagination
}

// priceOrder returns the SQL ordering for a side, best price first:
// ascending for sells, descending for buys. reverse flips it, which the
// previous-page query needs.
func priceOrder(side domain.Side, reverse bool) string {
	asc := side == domain.SideSell
	if reverse {
		asc = !asc
	}
	if asc {
		return "price ASC, created_at ASC, owner ASC"
	}
	return "price DESC, created_at ASC, owner ASC"
}

func marketSide(tx *gorm.DB, system, resource string, side domain.Side) *gorm.DB {
	return tx.Where("system = ? AND resource = ? AND side = ?", system, resource, string(side))
}

// BestCounter returns the best-priced order on the opposite side of a
// submission at or better than limit, or nil when none qualifies. Ties at
// one price resolve by earliest creation (price-time priority). Orders are
// fetched one at a time so a matching pass can stop mid-scan, e.g. on
// funds exhaustion, without overshooting.
func (s *OrderStore) BestCounter(tx *gorm.DB, system, resource string, submitted domain.Side, limit int64) (*domain.Order, error) {
	counter := submitted.Opposite()
	q := marketSide(tx, system, resource, counter)
	if submitted == domain.SideBuy {
		// Buying hits asks priced at or below the limit, cheapest first.
		q = q.Where("price <= ?", limit).Order("price ASC, created_at ASC, owner ASC")
	} else {
		// Selling hits bids priced at or above the limit, dearest first.
		q = q.Where("price >= ?", limit).Order("price DESC, created_at ASC, owner ASC")
	}

	var rows []Order
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	o := toDomain(rows[0])
	if o.Quantity <= 0 {
		return nil, fmt.Errorf("%w: %s/%s %s %s at %d has quantity %d",
			domain.ErrCorruptOrder, o.System, o.Resource, o.Owner, o.Side, o.Price, o.Quantity)
	}
	return &o, nil
}

// Merge adds quantity to the resting order identified by o's natural key,
// creating it when absent. The original creation time is kept on merge so
// resubmission does not regain time priority.
func (s *OrderStore) Merge(tx *gorm.DB, o domain.Order) error {
	var existing Order
	err := tx.Where(
		"system = ? AND resource = ? AND owner = ? AND side = ? AND price = ?",
		o.System, o.Resource, o.Owner, string(o.Side), o.Price,
	).Take(&existing).Error

	switch {
	case err == nil:
		if o.Quantity > math.MaxInt64-existing.Quantity {
			return &domain.ValidationError{
				Message: "merged resting quantity exceeds the representable maximum",
			}
		}
		return tx.Model(&Order{}).Where(
			"system = ? AND resource = ? AND owner = ? AND side = ? AND price = ?",
			o.System, o.Resource, o.Owner, string(o.Side), o.Price,
		).Update("quantity", existing.Quantity+o.Quantity).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := Order{
			System:    o.System,
			Resource:  o.Resource,
			Owner:     o.Owner,
			Side:      string(o.Side),
			Price:     o.Price,
			Quantity:  o.Quantity,
			CreatedAt: o.CreatedAt,
		}
		return tx.Create(&row).Error
	default:
		return err
	}
}

// Decrement reduces a resting order by qty, deleting the row when it
// reaches zero.
func (s *OrderStore) Decrement(tx *gorm.DB, o *domain.Order, qty int64) error {
	if qty > o.Quantity {
		return fmt.Errorf("%w: decrement %d exceeds resting quantity %d",
			domain.ErrCorruptOrder, qty, o.Quantity)
	}
	key := tx.Where(
		"system = ? AND resource = ? AND owner = ? AND side = ? AND price = ?",
		o.System, o.Resource, o.Owner, string(o.Side), o.Price,
	)
	if o.Quantity == qty {
		return key.Delete(&Order{}).Error
	}
	return tx.Model(&Order{}).Where(
		"system = ? AND resource = ? AND owner = ? AND side = ? AND price = ?",
		o.System, o.Resource, o.Owner, string(o.Side), o.Price,
	).Update("quantity", o.Quantity-qty).Error
}

// Remove deletes the resting order identified by its natural key.
// Returns domain.ErrOrderNotFound when no such order rests.
func (s *OrderStore) Remove(tx *gorm.DB, system, resource, owner string, side domain.Side, price int64) error {
	res := tx.Where(
		"system = ? AND resource = ? AND owner = ? AND side = ? AND price = ?",
		system, resource, owner, string(side), price,
	).Delete(&Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// Depth aggregates resting quantity across owners per price level,
// truncated to the top n levels, best price first.
func (s *OrderStore) Depth(tx *gorm.DB, system, resource string, side domain.Side, n int) ([]domain.PriceLevel, error) {
	dir := "ASC"
	if side == domain.SideBuy {
		dir = "DESC"
	}
	var levels []domain.PriceLevel
	err := marketSide(tx, system, resource, side).
		Model(&Order{}).
		Select("price, SUM(quantity) AS quantity").
		Group("price").
		Order("price " + dir).
		Limit(n).
		Scan(&levels).Error
	return levels, err
}

// ListByOwner returns one owner's resting orders on a market side, best
// price first.
func (s *OrderStore) ListByOwner(tx *gorm.DB, system, resource string, side domain.Side, owner string) ([]domain.Order, error) {
	var rows []Order
	err := marketSide(tx, system, resource, side).
		Where("owner = ?", owner).
		Order(priceOrder(side, false)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainAll(rows), nil
}

// List returns a cursor-paginated slice of one side of the book, best
// price first. Cursors are boundary prices, not offsets, so pages stay
// correct while the book mutates underneath: pageNext requests prices
// ranked strictly after the boundary in the active sort direction,
// pagePrevious strictly before it. Supplying both cursors is an error.
func (s *OrderStore) List(tx *gorm.DB, system, resource string, side domain.Side, pageNext, pagePrevious *int64, pageSize int) (*Page, error) {
	if pageNext != nil && pagePrevious != nil {
		return nil, &domain.ValidationError{
			Message: "page_next and page_previous are mutually exclusive",
		}
	}

	var total int64
	if err := marketSide(tx, system, resource, side).Model(&Order{}).Count(&total).Error; err != nil {
		return nil, err
	}

	q := marketSide(tx, system, resource, side)
	reverse := pagePrevious != nil
	asc := side == domain.SideSell

	switch {
	case pageNext != nil:
		if asc {
			q = q.Where("price > ?", *pageNext)
		} else {
			q = q.Where("price < ?", *pageNext)
		}
	case pagePrevious != nil:
		if asc {
			q = q.Where("price < ?", *pagePrevious)
		} else {
			q = q.Where("price > ?", *pagePrevious)
		}
	}

	var rows []Order
	if err := q.Order(priceOrder(side, reverse)).Limit(pageSize).Find(&rows).Error; err != nil {
		return nil, err
	}
	if reverse {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	page := &Page{Items: toDomainAll(rows), Total: total}
	if len(rows) > 0 {
		first := rows[0].Price
		last := rows[len(rows)-1].Price
		page.PagePrevious = &first
		page.PageNext = &last
	}
	return page, nil
}

func toDomain(r Order) domain.Order {
	return domain.Order{
		System:    r.System,
		Resource:  r.Resource,
		Owner:     r.Owner,
		Side:      domain.Side(r.Side),
		Price:     r.Price,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
	}
}

func toDomainAll(rows []Order) []domain.Order {
	out := make([]domain.Order, len(rows))
	for i, r := range rows {
		out[i] = toDomain(r)
	}
	return out
}
