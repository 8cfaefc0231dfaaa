package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sales-forecast-api/pkg/models"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// 受け付ける日付形式
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"20060102",
}

// ReadRows .csv または .xlsx（先頭シート）を行の配列として読み込みます。
func ReadRows(fileName string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("Excelファイルの読み込みに失敗: %w", err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("Excelシートの行取得に失敗: %w", err)
		}
		return rows, nil
	case ".csv":
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("CSVファイルの解析に失敗: %w", err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("サポートされていないファイル形式です: %s", fileName)
	}
}

// LoadOrdersFile 注文ファイルを読み込みます。
func LoadOrdersFile(path string) ([]models.Order, error) {
	rows, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOrders(rows)
}

// LoadProductsFile 商品ファイルを読み込みます。
func LoadProductsFile(path string) ([]models.Product, error) {
	rows, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProducts(rows)
}

func readFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けません: %w", err)
	}
	defer f.Close()
	return ReadRows(path, f)
}

// ParseOrders ヘッダー行から列を検出して注文に変換します。
// 不正な行はログに出してスキップします。order_id がない行にはUUIDを採番します。
func ParseOrders(rows [][]string) ([]models.Order, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("ヘッダー行がありません")
	}
	header := rows[0]
	cols := map[string]int{
		"order_id":    findIndex(header, "order_id", "orderId", "注文ID"),
		"product_id":  findIndex(header, "product_id", "productId", "商品ID", "製品ID"),
		"buyer_id":    findIndex(header, "buyer_id", "buyerId", "購入者ID"),
		"seller_id":   findIndex(header, "seller_id", "sellerId", "出品者ID"),
		"unit_price":  findIndex(header, "unit_price", "unitPrice", "単価"),
		"quantity":    findIndex(header, "quantity", "販売数", "数量"),
		"total_price": findIndex(header, "total_price", "totalPrice", "金額"),
		"timestamp":   findIndex(header, "timestamp", "order_time", "date", "日付"),
	}
	for _, required := range []string{"product_id", "seller_id", "quantity", "timestamp"} {
		if cols[required] == -1 {
			return nil, fmt.Errorf("必要な列が見つかりません: %s (ヘッダー: %v)", required, header)
		}
	}

	orders := make([]models.Order, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		order, err := parseOrderRow(row, cols)
		if err != nil {
			log.Printf("⚠️ [取り込み] 注文 %d 行目をスキップ: %v", line, err)
			continue
		}
		orders = append(orders, order)
	}
	log.Printf("📥 [取り込み] 注文 %d 件を読み込みました（%d 行中）", len(orders), len(rows)-1)
	return orders, nil
}

func parseOrderRow(row []string, cols map[string]int) (models.Order, error) {
	quantity, err := strconv.Atoi(cell(row, cols["quantity"]))
	if err != nil || quantity <= 0 {
		return models.Order{}, fmt.Errorf("数量が不正です: %q", cell(row, cols["quantity"]))
	}
	ts, err := parseTimestamp(cell(row, cols["timestamp"]))
	if err != nil {
		return models.Order{}, err
	}
	order := models.Order{
		OrderID:   cell(row, cols["order_id"]),
		ProductID: cell(row, cols["product_id"]),
		BuyerID:   cell(row, cols["buyer_id"]),
		SellerID:  cell(row, cols["seller_id"]),
		Quantity:  quantity,
		Timestamp: ts,
	}
	if order.ProductID == "" || order.SellerID == "" {
		return models.Order{}, fmt.Errorf("product_id または seller_id が空です")
	}
	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}

	order.UnitPrice = parseFloat(cell(row, cols["unit_price"]))
	order.TotalPrice = parseFloat(cell(row, cols["total_price"]))
	if order.TotalPrice == 0 {
		order.TotalPrice = order.UnitPrice * float64(quantity)
	}
	if order.UnitPrice == 0 && order.TotalPrice != 0 {
		order.UnitPrice = order.TotalPrice / float64(quantity)
	}
	return order, nil
}

// ParseProducts ヘッダー行から列を検出して商品に変換します。
func ParseProducts(rows [][]string) ([]models.Product, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("ヘッダー行がありません")
	}
	header := rows[0]
	idIdx := findIndex(header, "product_id", "id", "商品ID", "製品ID")
	if idIdx == -1 {
		return nil, fmt.Errorf("必要な列が見つかりません: product_id (ヘッダー: %v)", header)
	}
	nameIdx := findIndex(header, "name", "product_name", "商品名", "製品名")
	categoryIdx := findIndex(header, "category", "カテゴリ")
	brandIdx := findIndex(header, "brand", "ブランド")
	priceIdx := findIndex(header, "price", "価格")
	sellerIdx := findIndex(header, "seller_id", "sellerId", "出品者ID")
	createdIdx := findIndex(header, "create_timestamp", "created_at", "createTimestamp")
	descIdx := findIndex(header, "description", "説明")

	products := make([]models.Product, 0, len(rows)-1)
	for i, row := range rows[1:] {
		id := cell(row, idIdx)
		if id == "" {
			log.Printf("⚠️ [取り込み] 商品 %d 行目をスキップ: product_id が空です", i+2)
			continue
		}
		p := models.Product{
			ID:          id,
			Name:        cell(row, nameIdx),
			Category:    cell(row, categoryIdx),
			Brand:       cell(row, brandIdx),
			Price:       parseFloat(cell(row, priceIdx)),
			SellerID:    cell(row, sellerIdx),
			Description: cell(row, descIdx),
		}
		if ts, err := parseTimestamp(cell(row, createdIdx)); err == nil {
			p.CreatedAt = ts
		}
		products = append(products, p)
	}
	log.Printf("📥 [取り込み] 商品 %d 件を読み込みました", len(products))
	return products, nil
}

// findIndex 候補名のいずれかに一致する最初の列番号（大文字小文字は区別しない）
func findIndex(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range header {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("日時が空です")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("日時を解析できません: %q", s)
}
