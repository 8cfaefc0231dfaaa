package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"sales-forecast-api/pkg/models"
	"sales-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// parseDate yyyy-MM-dd 形式の日付をUTCで解析
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s は yyyy-MM-dd 形式で指定してください: %q", field, value)
	}
	return t, nil
}

// parseOptionalDate 空文字なら nil
func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// orderFilter 検索条件を組み立てます。終了日はその日を含みます。
func orderFilter(sellerID, productID, category, startDate, endDate string) (models.OrderFilter, error) {
	filter := models.OrderFilter{SellerID: sellerID, ProductID: productID, Category: category}

	start, err := parseOptionalDate("start_date", startDate)
	if err != nil {
		return filter, err
	}
	end, err := parseOptionalDate("end_date", endDate)
	if err != nil {
		return filter, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return filter, &services.InvalidRangeError{Start: *start, End: *end}
	}
	filter.Start = start
	if end != nil {
		exclusive := end.AddDate(0, 0, 1)
		filter.End = &exclusive
	}
	return filter, nil
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
	})
}

// respondError サービスのエラーをHTTPステータスに対応付けて返します。
func respondError(c *gin.Context, message string, err error) {
	var invalidRange *services.InvalidRangeError
	var tooLong *services.RangeTooLongError
	var notFound *services.ProductNotFoundError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &invalidRange), errors.As(err, &tooLong):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	default:
		log.Printf("❌ [API] %s: %v", message, err)
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   message + ": " + err.Error(),
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
