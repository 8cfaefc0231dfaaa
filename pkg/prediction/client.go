package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sales-forecast-api/pkg/models"
)

const (
	DefaultSingleTimeout = 10 * time.Second
	DefaultBatchTimeout  = 30 * time.Second
	DefaultHealthTimeout = 5 * time.Second
)

// Client は外部の販売予測サービス（/predict, /predict/batch, /health）を呼び出します。
type Client struct {
	baseURL       string
	httpClient    *http.Client
	singleTimeout time.Duration
	batchTimeout  time.Duration
	healthTimeout time.Duration
}

// Option Clientの設定を変更する関数
type Option func(*Client)

// WithTimeouts 各エンドポイントのタイムアウトを設定
func WithTimeouts(single, batch, health time.Duration) Option {
	return func(c *Client) {
		if single > 0 {
			c.singleTimeout = single
		}
		if batch > 0 {
			c.batchTimeout = batch
		}
		if health > 0 {
			c.healthTimeout = health
		}
	}
}

// WithHTTPClient 利用するhttp.Clientを差し替え
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient は新しい予測サービスクライアントを作成します。
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    &http.Client{},
		singleTimeout: DefaultSingleTimeout,
		batchTimeout:  DefaultBatchTimeout,
		healthTimeout: DefaultHealthTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL 接続先URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- データ構造定義 ---

// SingleResponse /predict のレスポンス
type SingleResponse struct {
	PredictedQuantity *float64 `json:"predicted_quantity"`
}

// BatchRequest /predict/batch のリクエスト
type BatchRequest struct {
	Requests []models.FeatureVector `json:"requests"`
}

// BatchResponse /predict/batch のレスポンス
type BatchResponse struct {
	Predictions []*float64 `json:"predictions"`
	Count       int        `json:"count"`
	Status      string     `json:"status"`
}

// --- メソッド定義 ---

// PredictSingle 1日分の特徴量から販売数を予測
func (c *Client) PredictSingle(ctx context.Context, fv models.FeatureVector) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.singleTimeout)
	defer cancel()

	var resp SingleResponse
	if err := c.doRequest(ctx, "predict", http.MethodPost, "/predict", fv, &resp); err != nil {
		return 0, err
	}
	if resp.PredictedQuantity == nil {
		return 0, &RemoteBackendError{Op: "predict", Err: fmt.Errorf("predicted_quantity がレスポンスに含まれていません")}
	}
	return *resp.PredictedQuantity, nil
}

// PredictBatch 複数日分の特徴量をまとめて予測。結果はリクエストと同じ順序で返る。
func (c *Client) PredictBatch(ctx context.Context, fvs []models.FeatureVector) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.batchTimeout)
	defer cancel()

	var resp BatchResponse
	if err := c.doRequest(ctx, "predict_batch", http.MethodPost, "/predict/batch", BatchRequest{Requests: fvs}, &resp); err != nil {
		return nil, err
	}
	if resp.Predictions == nil {
		return nil, &RemoteBackendError{Op: "predict_batch", Err: fmt.Errorf("predictions がレスポンスに含まれていません")}
	}
	// null が1件でもあれば不正なレスポンス
	values := make([]float64, len(resp.Predictions))
	for i, v := range resp.Predictions {
		if v == nil {
			return nil, &RemoteBackendError{Op: "predict_batch", Err: fmt.Errorf("predictions[%d] が null です", i)}
		}
		values[i] = *v
	}
	return values, nil
}

// Health 予測サービスの死活確認。エラーなしなら利用可能。
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	return c.doRequest(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// doRequest はHTTPリクエストの実行と基本的なレスポンス処理を行う共通メソッドです。
func (c *Client) doRequest(ctx context.Context, op, method, path string, requestData interface{}, responseData interface{}) error {
	if c.baseURL == "" {
		return &RemoteBackendError{Op: op, Err: fmt.Errorf("予測サービスのURLが設定されていません")}
	}

	var body io.Reader
	if requestData != nil {
		requestBody, err := json.Marshal(requestData)
		if err != nil {
			return &RemoteBackendError{Op: op, Err: fmt.Errorf("リクエストのJSON化に失敗: %w", err)}
		}
		body = bytes.NewReader(requestBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &RemoteBackendError{Op: op, Err: fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)}
	}
	if requestData != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteBackendError{Op: op, Err: fmt.Errorf("HTTPリクエストの実行に失敗: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteBackendError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("レスポンスの読み込みに失敗: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteBackendError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("予測サービスがエラーを返しました: %s", strings.TrimSpace(string(respBody)))}
	}

	if responseData == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, responseData); err != nil {
		return &RemoteBackendError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("レスポンスのJSON解析に失敗: %w", err)}
	}
	return nil
}
