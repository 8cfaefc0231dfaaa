package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"sales-forecast-api/pkg/models"
	"sales-forecast-api/pkg/services"
)

// MemoryStore 注文と商品をメモリ上に保持するストア
type MemoryStore struct {
	mu       sync.RWMutex
	orders   []models.Order
	orderIDs map[string]struct{}
	products map[string]models.Product
}

var (
	_ services.OrderStore      = (*MemoryStore)(nil)
	_ services.ProductCatalog  = (*MemoryStore)(nil)
	_ services.OrderImporter   = (*MemoryStore)(nil)
	_ services.ProductImporter = (*MemoryStore)(nil)
)

// NewMemoryStore 新しいMemoryStoreを作成
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make([]models.Order, 0),
		orderIDs: make(map[string]struct{}),
		products: make(map[string]models.Product),
	}
}

// AddProducts 商品を登録（同じIDは上書き）
func (s *MemoryStore) AddProducts(products ...models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
}

// UpsertProducts AddProducts と同じ
func (s *MemoryStore) UpsertProducts(_ context.Context, products []models.Product) error {
	s.AddProducts(products...)
	return nil
}

// ImportOrders 注文を追加し、時刻順を保ちます。
// 登録済みの order_id は無視し、新たに追加した件数を返します。
func (s *MemoryStore) ImportOrders(_ context.Context, orders []models.Order) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, o := range orders {
		if _, seen := s.orderIDs[o.OrderID]; seen {
			continue
		}
		s.orderIDs[o.OrderID] = struct{}{}
		s.orders = append(s.orders, o)
		inserted++
	}
	if inserted > 0 {
		sort.SliceStable(s.orders, func(i, j int) bool {
			return s.orders[i].Timestamp.Before(s.orders[j].Timestamp)
		})
	}
	return inserted, nil
}

// Counts 登録済みの注文数と商品数
func (s *MemoryStore) Counts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders), len(s.products)
}

// FindOrdersBetween [start, end) の注文
func (s *MemoryStore) FindOrdersBetween(_ context.Context, sellerID, productID string, start, end time.Time) ([]models.Order, error) {
	return s.collect(func(o models.Order) bool {
		return o.SellerID == sellerID && o.ProductID == productID &&
			!o.Timestamp.Before(start) && o.Timestamp.Before(end)
	}), nil
}

// FindOrdersAfter after 以降の注文
func (s *MemoryStore) FindOrdersAfter(_ context.Context, sellerID, productID string, after time.Time) ([]models.Order, error) {
	return s.collect(func(o models.Order) bool {
		return o.SellerID == sellerID && o.ProductID == productID && !o.Timestamp.Before(after)
	}), nil
}

// SearchOrders 条件に一致する注文
func (s *MemoryStore) SearchOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	categories := make(map[string]string, len(s.products))
	for id, p := range s.products {
		categories[id] = p.Category
	}
	s.mu.RUnlock()

	return s.collect(func(o models.Order) bool {
		switch {
		case filter.SellerID != "" && o.SellerID != filter.SellerID:
			return false
		case filter.ProductID != "" && o.ProductID != filter.ProductID:
			return false
		case filter.Category != "" && categories[o.ProductID] != filter.Category:
			return false
		case filter.Start != nil && o.Timestamp.Before(*filter.Start):
			return false
		case filter.End != nil && !o.Timestamp.Before(*filter.End):
			return false
		}
		return true
	}), nil
}

func (s *MemoryStore) collect(match func(models.Order) bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range s.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	return out
}

// GetProduct 商品を取得
func (s *MemoryStore) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, &services.ProductNotFoundError{ProductID: productID}
	}
	return &p, nil
}

// ListProductsBySellerAndCategory 出品者・カテゴリで商品を絞り込み（ID順）
func (s *MemoryStore) ListProductsBySellerAndCategory(_ context.Context, sellerID, category string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0)
	for _, p := range s.products {
		if p.SellerID == sellerID && p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}
