package store

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/companynet/pkg/common"
)

// ErrNotFound is returned when no network is stored under the requested id.
var ErrNotFound = errors.New("network not found")

// NetworkStorage persists built networks and reads them back by id.
// SaveNetwork replaces any network previously stored under the same id.
type NetworkStorage interface {
	SaveNetwork(ctx context.Context, network *common.Network) error
	GetNetwork(ctx context.Context, id string) (*common.Network, error)
	DeleteNetwork(ctx context.Context, id string) error
}
