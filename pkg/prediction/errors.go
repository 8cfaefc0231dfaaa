package prediction

import "fmt"

// RemoteBackendError 予測サービス呼び出しの失敗（タイムアウト、非2xx、不正なペイロード）
type RemoteBackendError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteBackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("prediction backend %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("prediction backend %s failed: %v", e.Op, e.Err)
}

func (e *RemoteBackendError) Unwrap() error {
	return e.Err
}
