package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/workflow"
)

// Commerce implements the kavach repositories. One mutex guards all
// collections so PlaceOrder can check stock, redeem the coupon and store the
// order as a single step.
type Commerce struct {
	mu sync.RWMutex

	products  *Collection[int64, models.Product]
	coupons   *Collection[string, models.Coupon]
	orders    *Collection[int64, models.Order]
	addresses *Collection[int64, models.Address]
	rule      *models.DeliveryRule

	nextProductID int64
	nextCouponID  int64
	nextOrderID   int64
	nextItemID    int64
	nextAddressID int64
	nextRuleID    int64

	now func() time.Time
}

func NewCommerce() *Commerce {
	return &Commerce{
		products:  NewCollection[int64, models.Product](),
		coupons:   NewCollection[string, models.Coupon](),
		orders:    NewCollection[int64, models.Order](),
		addresses: NewCollection[int64, models.Address](),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Commerce) SetClock(now func() time.Time) { s.now = now }

func (s *Commerce) Repositories() kavach.Repositories {
	return kavach.Repositories{
		Products:  s,
		Orders:    s,
		Coupons:   s,
		Rules:     s,
		Addresses: s,
	}
}

func cloneProduct(p models.Product) models.Product {
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		p.OriginalPrice = &op
	}
	return p
}

func (s *Commerce) CreateProduct(_ context.Context, p *models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products.List() {
		if p.SKU != "" && existing.SKU == p.SKU {
			return nil, fmt.Errorf("%w: sku %s", database.ErrDuplicate, p.SKU)
		}
	}

	created := cloneProduct(*p)
	if created.ID == 0 {
		s.nextProductID++
		created.ID = s.nextProductID
	} else if created.ID > s.nextProductID {
		s.nextProductID = created.ID
	}
	now := s.now()
	created.CreatedAt = now
	created.UpdatedAt = now
	created.Version = 1
	s.products.Put(created.ID, created)

	out := cloneProduct(created)
	return &out, nil
}

func (s *Commerce) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products.Get(id)
	if !ok {
		return nil, database.ErrProductNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

func (s *Commerce) GetProducts(_ context.Context, ids []int64) (map[int64]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products.Get(id); ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (s *Commerce) UpdateProduct(_ context.Context, p *models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products.Get(p.ID)
	if !ok {
		return nil, database.ErrProductNotFound
	}
	if current.Version != p.Version {
		return nil, database.ErrOptimisticLockFailed
	}

	updated := cloneProduct(*p)
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.now()
	updated.Version = current.Version + 1
	s.products.Put(updated.ID, updated)

	out := cloneProduct(updated)
	return &out, nil
}

func (s *Commerce) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.products.Delete(id) {
		return database.ErrProductNotFound
	}
	return nil
}

func (s *Commerce) ListProducts(_ context.Context, f models.ProductFilter) (*models.OffsetPage[models.Product], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := s.products.Filter(func(p models.Product) bool {
		if f.ActiveOnly && !p.Active {
			return false
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			return false
		}
		return true
	})

	total := int64(len(matched))
	start := (f.Page - 1) * f.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]models.Product, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, cloneProduct(p))
	}
	return models.NewOffsetPage(page, total, f.Page, f.PageSize), nil
}

func cloneCoupon(c models.Coupon) models.Coupon {
	if c.MaximumDiscountAmount != nil {
		m := *c.MaximumDiscountAmount
		c.MaximumDiscountAmount = &m
	}
	if c.UsageLimit != nil {
		l := *c.UsageLimit
		c.UsageLimit = &l
	}
	c.Categories = append([]string(nil), c.Categories...)
	return c
}

func (s *Commerce) CreateCoupon(_ context.Context, c *models.Coupon) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := models.NormalizeCode(c.Code)
	if _, exists := s.coupons.Get(code); exists {
		return nil, fmt.Errorf("%w: coupon %s", database.ErrDuplicate, code)
	}

	created := cloneCoupon(*c)
	created.Code = code
	s.nextCouponID++
	created.ID = s.nextCouponID
	created.Version = 1
	s.coupons.Put(code, created)

	out := cloneCoupon(created)
	return &out, nil
}

func (s *Commerce) GetCouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons.Get(models.NormalizeCode(code))
	if !ok {
		return nil, database.ErrCouponNotFound
	}
	out := cloneCoupon(c)
	return &out, nil
}

func (s *Commerce) UpdateCoupon(_ context.Context, c *models.Coupon) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := models.NormalizeCode(c.Code)
	current, ok := s.coupons.Get(code)
	if !ok {
		return nil, database.ErrCouponNotFound
	}
	if current.Version != c.Version {
		return nil, database.ErrOptimisticLockFailed
	}

	updated := cloneCoupon(*c)
	updated.Code = code
	updated.ID = current.ID
	updated.UsageCount = current.UsageCount
	updated.Version = current.Version + 1
	s.coupons.Put(code, updated)

	out := cloneCoupon(updated)
	return &out, nil
}

func (s *Commerce) ListCoupons(_ context.Context) ([]models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.coupons.List()
	for i := range list {
		list[i] = cloneCoupon(list[i])
	}
	return list, nil
}

func (s *Commerce) ActiveDeliveryRule(_ context.Context) (*models.DeliveryRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rule == nil || !s.rule.Active {
		return nil, database.ErrNoDeliveryRule
	}
	r := *s.rule
	return &r, nil
}

func (s *Commerce) SetDeliveryRule(_ context.Context, rule *models.DeliveryRule) (*models.DeliveryRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rule
	s.nextRuleID++
	r.ID = s.nextRuleID
	r.Active = true
	s.rule = &r

	out := r
	return &out, nil
}

func (s *Commerce) CreateAddress(_ context.Context, a *models.Address) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *a
	s.nextAddressID++
	created.ID = s.nextAddressID

	hasOther := false
	for _, existing := range s.addresses.List() {
		if existing.Owner != created.Owner {
			continue
		}
		hasOther = true
		if created.IsDefault && existing.IsDefault {
			existing.IsDefault = false
			s.addresses.Put(existing.ID, existing)
		}
	}
	if !hasOther {
		created.IsDefault = true
	}
	s.addresses.Put(created.ID, created)

	out := created
	return &out, nil
}

func (s *Commerce) GetAddress(_ context.Context, id int64) (*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.addresses.Get(id)
	if !ok {
		return nil, database.ErrAddressNotFound
	}
	return &a, nil
}

func (s *Commerce) ListAddresses(_ context.Context, owner string) ([]models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.addresses.Filter(func(a models.Address) bool { return a.Owner == owner }), nil
}

func (s *Commerce) DeleteAddress(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.addresses.Delete(id) {
		return database.ErrAddressNotFound
	}
	return nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

func (s *Commerce) PlaceOrder(_ context.Context, req kavach.PlaceOrderRequest, price kavach.Pricer) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[int64]models.Product, len(req.Items))
	for _, it := range req.Items {
		if p, ok := s.products.Get(it.ProductID); ok {
			products[it.ProductID] = cloneProduct(p)
		}
	}

	var coupon *models.Coupon
	if req.CouponCode != "" {
		c, ok := s.coupons.Get(req.CouponCode)
		if !ok {
			return nil, database.ErrCouponNotFound
		}
		cc := cloneCoupon(c)
		coupon = &cc
	}

	usage := 0
	if coupon != nil {
		usage = s.couponRedemptions(coupon.Code, req.Owner)
	}

	quote, err := price(products, coupon, usage)
	if err != nil {
		return nil, err
	}

	// Stock was verified by price against the same snapshot, under the lock.
	now := s.now()
	for _, line := range quote.Lines {
		p, _ := s.products.Get(line.ProductID)
		if p.StockQuantity < line.Quantity {
			return nil, database.ErrInsufficientStock
		}
	}
	for _, line := range quote.Lines {
		p, _ := s.products.Get(line.ProductID)
		p.StockQuantity -= line.Quantity
		p.UpdatedAt = now
		p.Version++
		s.products.Put(p.ID, p)
	}

	if coupon != nil {
		c, _ := s.coupons.Get(coupon.Code)
		c.UsageCount++
		c.Version++
		s.coupons.Put(c.Code, c)
	}

	s.nextOrderID++
	order := models.Order{
		ID:              s.nextOrderID,
		Owner:           req.Owner,
		OrderNumber:     generateOrderNumber(now, s.nextOrderID),
		Status:          workflow.Order.Initial(),
		Subtotal:        quote.Subtotal,
		DeliveryCharge:  quote.DeliveryCharge,
		Discount:        quote.Discount,
		Total:           quote.Total,
		CouponCode:      quote.CouponCode,
		ShippingAddress: req.Address,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	for _, line := range quote.Lines {
		s.nextItemID++
		order.Items = append(order.Items, models.OrderItem{
			ID:        s.nextItemID,
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
			CreatedAt: now,
		})
	}
	s.orders.Put(order.ID, order)

	out := cloneOrder(order)
	return &out, nil
}

func generateOrderNumber(at time.Time, id int64) string {
	return fmt.Sprintf("KV-%s-%06d", at.Format("20060102"), id)
}

func (s *Commerce) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders.Get(id)
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *Commerce) ListOrders(_ context.Context, f models.OrderFilter) (*models.CursorPage[models.Order], error) {
	cursor, err := models.DecodeCursor(f.Cursor)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.orders.Filter(func(o models.Order) bool {
		if f.Owner != "" && o.Owner != f.Owner {
			return false
		}
		if f.Status != "" && o.Status != f.Status {
			return false
		}
		return cursor.Before(&o)
	})
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	hasMore := len(matched) > f.Limit
	if hasMore {
		matched = matched[:f.Limit]
	}

	page := &models.CursorPage[models.Order]{Items: make([]models.Order, 0, len(matched)), HasMore: hasMore}
	for _, o := range matched {
		o.Items = nil
		page.Items = append(page.Items, o)
	}
	if hasMore && len(matched) > 0 {
		last := matched[len(matched)-1]
		page.NextCursor = models.EncodeCursor(models.OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *Commerce) TransitionOrder(_ context.Context, id int64, event workflow.OrderEvent) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders.Get(id)
	if !ok {
		return nil, database.ErrOrderNotFound
	}

	next, err := workflow.Order.Fire(o.Status, event)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if next == models.OrderStatusCancelled {
		for _, it := range o.Items {
			if p, ok := s.products.Get(it.ProductID); ok {
				p.StockQuantity += it.Quantity
				p.UpdatedAt = now
				p.Version++
				s.products.Put(p.ID, p)
			}
		}
	}

	o.Status = next
	o.UpdatedAt = now
	o.Version++
	s.orders.Put(o.ID, o)

	out := cloneOrder(o)
	return &out, nil
}

func (s *Commerce) CouponRedemptions(_ context.Context, code, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.couponRedemptions(models.NormalizeCode(code), owner), nil
}

// couponRedemptions expects s.mu to be held.
func (s *Commerce) couponRedemptions(code, owner string) int {
	n := 0
	for _, o := range s.orders.List() {
		if o.Owner == owner && o.CouponCode == code && o.Status != models.OrderStatusCancelled {
			n++
		}
	}
	return n
}
