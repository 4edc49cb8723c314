package futures

import (
	"context"

	"github.com/bytedance/sonic"

	"asterdex/pkg/core"
)

// CreateListenKey opens a futures user data stream session.
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

// KeepAliveListenKey extends a futures user data stream session.
func (s *Service) KeepAliveListenKey(ctx context.Context) error {
	_, err := s.call.Call(ctx, newRequest("keepAliveListenKey"))
	return err
}

// CloseListenKey terminates a futures user data stream session.
func (s *Service) CloseListenKey(ctx context.Context) error {
	_, err := s.call.Call(ctx, newRequest("closeListenKey"))
	return err
}
