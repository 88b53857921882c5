package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/common"
	"github.com/OFFIS-RIT/companynet/pkg/export"
	"github.com/OFFIS-RIT/companynet/pkg/graph"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
)

const TopicNetworkBuilt = "network.built"

// NetworkRequestMsg asks the worker to build a network. A zero Limit uses the
// configured seed limit. RequestID, when it is a valid network id, becomes the
// id of the built network so callers can look it up later.
type NetworkRequestMsg struct {
	RequestID string `json:"request_id,omitempty"`
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
}

// NetworkBuiltMsg is published on EventExchange after a network was persisted.
type NetworkBuiltMsg struct {
	ID          string `json:"id"`
	Query       string `json:"query"`
	Companies   int    `json:"companies"`
	Partners    int    `json:"partners"`
	Connections int    `json:"connections"`
}

// Processor carries the dependencies of the message handlers.
type Processor struct {
	Graph *graph.GraphClient
	Sinks []export.Sink

	// Deleters remove a stored network by id. Missing networks are not an error.
	Deleters []func(ctx context.Context, id string) error

	// Events receives NetworkBuiltMsg notifications when set.
	Events Channel

	// Locker, when set, serializes writes to the same network id across workers.
	Locker Locker
}

// Locker runs fn while holding the exclusive lease of one network. It is
// implemented by *leaselock.Client.
type Locker interface {
	WithNetwork(ctx context.Context, networkID string, fn func(ctx context.Context) error) error
}

func (p *Processor) withNetworkLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	if p.Locker == nil {
		return fn(ctx)
	}
	return p.Locker.WithNetwork(ctx, id, fn)
}

// EncodeNetworkRequest marshals a build request for PublishFIFO.
func EncodeNetworkRequest(msg NetworkRequestMsg) ([]byte, error) {
	return json.Marshal(msg)
}

// ParseNetworkRequest decodes a build request.
func ParseNetworkRequest(body []byte) (NetworkRequestMsg, error) {
	var msg NetworkRequestMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return NetworkRequestMsg{}, fmt.Errorf("invalid network request: %w", err)
	}
	if msg.RequestID != "" && !util.IsNetworkID(msg.RequestID) {
		return NetworkRequestMsg{}, fmt.Errorf("invalid network request id %q", msg.RequestID)
	}
	return msg, nil
}

// ProcessNetworkMessage builds, analyzes and persists the requested network.
// Returned errors route the message to the retry queue.
func (p *Processor) ProcessNetworkMessage(ctx context.Context, body []byte) (*common.Network, error) {
	msg, err := ParseNetworkRequest(body)
	if err != nil {
		return nil, err
	}

	limit := msg.Limit
	if limit == 0 {
		limit = p.Graph.SeedLimit()
	}

	network := p.Graph.BuildNetwork(ctx, msg.Query, limit)
	if msg.RequestID != "" {
		network.ID = msg.RequestID
	}
	analysis := p.Graph.AnalyzeNetwork(network)

	err = p.withNetworkLock(ctx, network.ID, func(ctx context.Context) error {
		return export.PersistAll(ctx, network, p.Sinks...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist network %s: %w", network.ID, err)
	}

	logger.Info("[Queue] Network processed",
		"id", network.ID,
		"query", network.Query,
		"top_partners", len(analysis.TopPartnersByCompanies),
	)

	if p.Events != nil {
		event, err := json.Marshal(NetworkBuiltMsg{
			ID:          network.ID,
			Query:       network.Query,
			Companies:   len(network.Companies),
			Partners:    len(network.Partners),
			Connections: len(network.Connections),
		})
		if err != nil {
			return nil, err
		}
		// the network is already stored, a lost event must not trigger a rebuild
		if err := PublishTopic(ctx, p.Events, TopicNetworkBuilt, event); err != nil {
			logger.Warn("[Queue] Failed to publish network event", "id", network.ID, "err", err)
		}
	}

	return network, nil
}
