package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sales-forecast-api/pkg/models"
	"sales-forecast-api/pkg/services"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Schema 注文・商品テーブルの定義
const Schema = `
CREATE TABLE IF NOT EXISTS products (
    product_id  TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    brand       TEXT NOT NULL DEFAULT '',
    price       NUMERIC(12, 2) NOT NULL DEFAULT 0,
    seller_id   TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    description TEXT
);

CREATE TABLE IF NOT EXISTS orders (
    order_id    TEXT PRIMARY KEY,
    product_id  TEXT NOT NULL,
    buyer_id    TEXT NOT NULL DEFAULT '',
    seller_id   TEXT NOT NULL,
    unit_price  NUMERIC(12, 2) NOT NULL DEFAULT 0,
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    total_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
    order_time  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_seller_product_time ON orders (seller_id, product_id, order_time);
`

const insertBatchSize = 500

var (
	orderColumns = []string{
		"o.order_id", "o.product_id", "o.buyer_id", "o.seller_id",
		"o.unit_price", "o.quantity", "o.total_price", "o.order_time",
	}
	productColumns = []string{
		"product_id", "name", "category", "brand", "price", "seller_id", "created_at",
		"COALESCE(description, '') AS description",
	}
)

// PostgresStore PostgreSQL上の注文・商品ストア
type PostgresStore struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

var (
	_ services.OrderStore      = (*PostgresStore)(nil)
	_ services.ProductCatalog  = (*PostgresStore)(nil)
	_ services.OrderImporter   = (*PostgresStore)(nil)
	_ services.ProductImporter = (*PostgresStore)(nil)
)

// NewPostgresStore 接続文字列からストアを作成
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
	}
	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB 既存の接続からストアを作成
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Close 接続を閉じる
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema テーブルがなければ作成
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("スキーマの作成に失敗: %w", err)
	}
	return nil
}

func (s *PostgresStore) ordersQuery() sq.SelectBuilder {
	return s.psql.Select(orderColumns...).From("orders o").OrderBy("o.order_time ASC", "o.order_id ASC")
}

func (s *PostgresStore) betweenQuery(sellerID, productID string, start, end time.Time) sq.SelectBuilder {
	return s.ordersQuery().Where(sq.Eq{"o.seller_id": sellerID, "o.product_id": productID}).
		Where(sq.GtOrEq{"o.order_time": start}).
		Where(sq.Lt{"o.order_time": end})
}

func (s *PostgresStore) afterQuery(sellerID, productID string, after time.Time) sq.SelectBuilder {
	return s.ordersQuery().Where(sq.Eq{"o.seller_id": sellerID, "o.product_id": productID}).
		Where(sq.GtOrEq{"o.order_time": after})
}

func (s *PostgresStore) searchQuery(filter models.OrderFilter) sq.SelectBuilder {
	q := s.ordersQuery()
	if filter.SellerID != "" {
		q = q.Where(sq.Eq{"o.seller_id": filter.SellerID})
	}
	if filter.ProductID != "" {
		q = q.Where(sq.Eq{"o.product_id": filter.ProductID})
	}
	if filter.Category != "" {
		q = q.Join("products p ON p.product_id = o.product_id").Where(sq.Eq{"p.category": filter.Category})
	}
	if filter.Start != nil {
		q = q.Where(sq.GtOrEq{"o.order_time": *filter.Start})
	}
	if filter.End != nil {
		q = q.Where(sq.Lt{"o.order_time": *filter.End})
	}
	return q
}

func (s *PostgresStore) selectOrders(ctx context.Context, q sq.SelectBuilder) ([]models.Order, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("SQLの組み立てに失敗: %w", err)
	}
	orders := make([]models.Order, 0)
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("注文の取得に失敗: %w", err)
	}
	return orders, nil
}

// FindOrdersBetween [start, end) の注文
func (s *PostgresStore) FindOrdersBetween(ctx context.Context, sellerID, productID string, start, end time.Time) ([]models.Order, error) {
	return s.selectOrders(ctx, s.betweenQuery(sellerID, productID, start, end))
}

// FindOrdersAfter after 以降の注文
func (s *PostgresStore) FindOrdersAfter(ctx context.Context, sellerID, productID string, after time.Time) ([]models.Order, error) {
	return s.selectOrders(ctx, s.afterQuery(sellerID, productID, after))
}

// SearchOrders 条件に一致する注文
func (s *PostgresStore) SearchOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	return s.selectOrders(ctx, s.searchQuery(filter))
}

// GetProduct 商品を取得
func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	query, args, err := s.psql.Select(productColumns...).From("products").
		Where(sq.Eq{"product_id": productID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("SQLの組み立てに失敗: %w", err)
	}

	var product models.Product
	if err := s.db.GetContext(ctx, &product, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &services.ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("商品の取得に失敗: %w", err)
	}
	return &product, nil
}

// ListProductsBySellerAndCategory 出品者・カテゴリで商品を絞り込み
func (s *PostgresStore) ListProductsBySellerAndCategory(ctx context.Context, sellerID, category string) ([]models.Product, error) {
	query, args, err := s.psql.Select(productColumns...).From("products").
		Where(sq.Eq{"seller_id": sellerID, "category": category}).
		OrderBy("product_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("SQLの組み立てに失敗: %w", err)
	}

	products := make([]models.Product, 0)
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) insertOrdersQuery(orders []models.Order) sq.InsertBuilder {
	q := s.psql.Insert("orders").
		Columns("order_id", "product_id", "buyer_id", "seller_id", "unit_price", "quantity", "total_price", "order_time").
		Suffix("ON CONFLICT (order_id) DO NOTHING")
	for _, o := range orders {
		q = q.Values(o.OrderID, o.ProductID, o.BuyerID, o.SellerID, o.UnitPrice, o.Quantity, o.TotalPrice, o.Timestamp)
	}
	return q
}

// ImportOrders 注文をまとめて登録します。既存の order_id は無視します。
func (s *PostgresStore) ImportOrders(ctx context.Context, orders []models.Order) (int, error) {
	inserted := 0
	for start := 0; start < len(orders); start += insertBatchSize {
		end := min(start+insertBatchSize, len(orders))
		query, args, err := s.insertOrdersQuery(orders[start:end]).ToSql()
		if err != nil {
			return inserted, fmt.Errorf("SQLの組み立てに失敗: %w", err)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("注文の登録に失敗: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

func (s *PostgresStore) upsertProductsQuery(products []models.Product) sq.InsertBuilder {
	q := s.psql.Insert("products").
		Columns("product_id", "name", "category", "brand", "price", "seller_id", "created_at", "description").
		Suffix("ON CONFLICT (product_id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category, " +
			"brand = EXCLUDED.brand, price = EXCLUDED.price, seller_id = EXCLUDED.seller_id, description = EXCLUDED.description")
	for _, p := range products {
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		q = q.Values(p.ID, p.Name, p.Category, p.Brand, p.Price, p.SellerID, created, p.Description)
	}
	return q
}

// UpsertProducts 商品を登録・更新
func (s *PostgresStore) UpsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	query, args, err := s.upsertProductsQuery(products).ToSql()
	if err != nil {
		return fmt.Errorf("SQLの組み立てに失敗: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("商品の登録に失敗: %w", err)
	}
	return nil
}
