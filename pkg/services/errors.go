package services

import (
	"fmt"
	"time"

	"sales-forecast-api/pkg/models"
)

// InvalidRangeError 終了日が開始日より前
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s is before start %s",
		e.End.Format(models.DateLayout), e.Start.Format(models.DateLayout))
}

// RangeTooLongError 予測期間が上限の日数を超えている
type RangeTooLongError struct {
	Days int
	Max  int
}

func (e *RangeTooLongError) Error() string {
	return fmt.Sprintf("date range too long: %d days (max %d)", e.Days, e.Max)
}

// ProductNotFoundError 商品IDがカタログに存在しない
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}
