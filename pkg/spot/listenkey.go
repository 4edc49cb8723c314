package spot

import (
	"context"

	"github.com/bytedance/sonic"

	"asterdex/pkg/core"
)

// CreateListenKey opens a user data stream session and returns its key.
func (s *Service) CreateListenKey(ctx context.Context) (*core.ListenKey, error) {
	body, err := s.call.Call(ctx, newRequest("createListenKey"))
	if err != nil {
		return nil, err
	}
	var key core.ListenKey
	if err := sonic.Unmarshal(body, &key); err != nil {
		return nil, core.NewAPIError(0, "", "parse listen key: "+err.Error())
	}
	return &key, nil
}

// KeepAliveListenKey extends a user data stream session. Keys expire
// after 60 minutes without a keepalive.
func (s *Service) KeepAliveListenKey(ctx context.Context, key string) error {
	if key == "" {
		return core.NewValidationError("listenKey", "listen key is required")
	}
	req := newRequest("keepAliveListenKey").SetQuery("listenKey", key)
	_, err := s.call.Call(ctx, req)
	return err
}

// CloseListenKey terminates a user data stream session.
func (s *Service) CloseListenKey(ctx context.Context, key string) error {
	if key == "" {
		return core.NewValidationError("listenKey", "listen key is required")
	}
	req := newRequest("closeListenKey").SetQuery("listenKey", key)
	_, err := s.call.Call(ctx, req)
	return err
}
