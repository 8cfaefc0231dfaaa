package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sales-forecast-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVector() models.FeatureVector {
	return models.FeatureVector{
		ProductID:     "p100",
		SellerID:      "s1",
		SalePrice:     80,
		OriginalPrice: 100,
		IsWeekend:     1,
		DayOfWeek:     5,
		DayOfMonth:    7,
		Month:         6,
		Lag1:          4,
		Lag7:          6,
	}
}

func TestPredictSingle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p100", body["product_id"])
		assert.Equal(t, float64(4), body["lag_1"])
		assert.Equal(t, float64(1), body["is_weekend"])

		w.Write([]byte(`{"predicted_quantity": 12.6}`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	value, err := client.PredictSingle(context.Background(), sampleVector())
	require.NoError(t, err)
	assert.InDelta(t, 12.6, value, 1e-9)
}

func TestPredictSingleMissingValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).PredictSingle(context.Background(), sampleVector())
	var backendErr *RemoteBackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, "predict", backendErr.Op)
}

func TestPredictBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict/batch", r.URL.Path)

		var body BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Requests, 2)
		assert.Equal(t, 7, body.Requests[0].DayOfMonth)

		w.Write([]byte(`{"predictions": [3.2, 4.8], "count": 2, "status": "success"}`))
	}))
	defer server.Close()

	second := sampleVector()
	second.DayOfMonth = 8
	values, err := NewClient(server.URL).PredictBatch(context.Background(), []models.FeatureVector{sampleVector(), second})
	require.NoError(t, err)
	assert.Equal(t, []float64{3.2, 4.8}, values)
}

func TestRequestErrors(t *testing.T) {
	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		statusCode int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
			statusCode: http.StatusServiceUnavailable,
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"predictions": "oops"`))
			},
			statusCode: http.StatusOK,
		},
		{
			name: "null predictions",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"predictions": null, "count": 0}`))
			},
		},
		{
			name: "null element in predictions",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"predictions": [3.0, null, 4.0], "count": 3, "status": "success"}`))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := NewClient(server.URL).PredictBatch(context.Background(), []models.FeatureVector{sampleVector()})
			var backendErr *RemoteBackendError
			require.True(t, errors.As(err, &backendErr))
			assert.Equal(t, "predict_batch", backendErr.Op)
			assert.Equal(t, tc.statusCode, backendErr.StatusCode)
		})
	}
}

func TestPredictSingleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeouts(20*time.Millisecond, 0, 0))
	_, err := client.PredictSingle(context.Background(), sampleVector())
	var backendErr *RemoteBackendError
	require.True(t, errors.As(err, &backendErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer server.Close()

	assert.NoError(t, NewClient(server.URL).Health(context.Background()))
	assert.Error(t, NewClient("").Health(context.Background()))
}
