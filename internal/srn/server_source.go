package srn

import (
	"context"
	"fmt"
	"log/slog"

	"acmsync/internal/checkoutapi"
	"acmsync/internal/config"
)

// ServerSource reserves blocks through the checkout server.
type ServerSource struct {
	Client   *checkoutapi.Client
	Identity checkoutapi.Identity
}

// ReserveBlock implements BlockSource.
func (s ServerSource) ReserveBlock(ctx context.Context, n int) (Block, error) {
	resp, err := s.Client.ReserveSRN(ctx, s.Identity, n)
	if err != nil {
		return Block{}, err
	}
	if resp.Status != checkoutapi.StatusOK {
		return Block{}, fmt.Errorf("%w: %s", ErrDenied, resp.Message)
	}
	return Block{DeviceID: resp.ID, Range: Range{Begin: resp.Begin, End: resp.End}}, nil
}

// NewFromConfig opens the allocator stored under the configured SRN directory
// and backed by client. client may be nil for offline use.
func NewFromConfig(cfg *config.Config, client *checkoutapi.Client, logger *slog.Logger) (*Allocator, error) {
	var source BlockSource
	if client != nil {
		source = ServerSource{Client: client, Identity: checkoutapi.IdentityFromConfig(cfg)}
	}
	return NewAllocator(NewPropertiesStore(cfg.SRNStorePath()), source, cfg.SRN.BlockSize, logger)
}
