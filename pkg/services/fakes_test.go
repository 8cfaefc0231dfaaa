package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"sales-forecast-api/pkg/models"
	"sales-forecast-api/pkg/prediction"
)

type fakeOrderStore struct {
	orders    []models.Order
	err       error
	afterArgs []time.Time
}

func (f *fakeOrderStore) FindOrdersBetween(_ context.Context, sellerID, productID string, start, end time.Time) ([]models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Order
	for _, o := range f.orders {
		if o.SellerID == sellerID && o.ProductID == productID && !o.Timestamp.Before(start) && o.Timestamp.Before(end) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) FindOrdersAfter(_ context.Context, sellerID, productID string, after time.Time) ([]models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.afterArgs = append(f.afterArgs, after)
	var out []models.Order
	for _, o := range f.orders {
		if o.SellerID == sellerID && o.ProductID == productID && !o.Timestamp.Before(after) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) SearchOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Order
	for _, o := range f.orders {
		if filter.SellerID != "" && o.SellerID != filter.SellerID {
			continue
		}
		if filter.ProductID != "" && o.ProductID != filter.ProductID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type fakeCatalog struct {
	products map[string]models.Product
}

func newFakeCatalog(products ...models.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]models.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, &ProductNotFoundError{ProductID: productID}
	}
	return &p, nil
}

func (f *fakeCatalog) ListProductsBySellerAndCategory(_ context.Context, sellerID, category string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.SellerID == sellerID && p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeBackend は予測サービスのテストダブルです。
type fakeBackend struct {
	mu          sync.Mutex
	batchFn     func(fvs []models.FeatureVector) ([]float64, error)
	singleFn    func(fv models.FeatureVector) (float64, error)
	batchCalls  int
	singleCalls int
}

var errBackendDown = &prediction.RemoteBackendError{Op: "predict", Err: errors.New("connection refused")}

func (f *fakeBackend) PredictSingle(_ context.Context, fv models.FeatureVector) (float64, error) {
	f.mu.Lock()
	f.singleCalls++
	f.mu.Unlock()
	if f.singleFn == nil {
		return 0, errBackendDown
	}
	return f.singleFn(fv)
}

func (f *fakeBackend) PredictBatch(_ context.Context, fvs []models.FeatureVector) ([]float64, error) {
	f.mu.Lock()
	f.batchCalls++
	f.mu.Unlock()
	if f.batchFn == nil {
		return nil, errBackendDown
	}
	return f.batchFn(fvs)
}

func (f *fakeBackend) Health(context.Context) error {
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[models.ForecastSource]int
}

func (f *fakeRecorder) RecordForecast(source models.ForecastSource, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[models.ForecastSource]int)
	}
	f.counts[source] += count
}

func order(productID, sellerID, day string, quantity int, totalPrice float64) models.Order {
	return models.Order{
		OrderID:    productID + "-" + day,
		ProductID:  productID,
		SellerID:   sellerID,
		BuyerID:    "b1",
		UnitPrice:  totalPrice / float64(quantity),
		Quantity:   quantity,
		TotalPrice: totalPrice,
		Timestamp:  date(day).Add(10 * time.Hour),
	}
}
