package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/store"
)

// DeleteNetworkMsg asks the worker to remove a stored network.
type DeleteNetworkMsg struct {
	NetworkID string `json:"network_id"`
}

// ProcessDeleteMessage removes a network from every configured backend.
func (p *Processor) ProcessDeleteMessage(ctx context.Context, body []byte) error {
	var data DeleteNetworkMsg
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("invalid delete request: %w", err)
	}
	if !util.IsNetworkID(data.NetworkID) {
		return fmt.Errorf("invalid network id %q", data.NetworkID)
	}

	err := p.withNetworkLock(ctx, data.NetworkID, func(ctx context.Context) error {
		var errs []error
		for _, del := range p.Deleters {
			err := del(ctx, data.NetworkID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	if err != nil {
		return err
	}

	logger.Info("[Queue] Network deleted", "id", data.NetworkID)
	return nil
}
