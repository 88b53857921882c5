package graph

import (
	"fmt"

	"github.com/OFFIS-RIT/companynet/pkg/search"
)

const (
	defaultCompanyIndex = "companies"
	defaultSeedLimit    = 10
	defaultCPFLimit     = 50
)

// GraphClient builds company/partner networks from a search backend and
// ranks them.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	searcher     search.Searcher
	companyIndex string
	seedLimit    int
	maxDepth     int
	observer     Observer
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// Searcher is the search collaborator and is required.
// CompanyIndex names the index holding company records (default "companies").
// SeedLimit bounds the seed query when Build is used (default 10).
// MaxDepth is accepted for compatibility; builds are always single hop.
// Observer, when set, is notified after each build phase.
type NewGraphClientParams struct {
	Searcher     search.Searcher
	CompanyIndex string
	SeedLimit    int
	MaxDepth     int
	Observer     Observer
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		Searcher:     meiliClient,
//		CompanyIndex: "companies",
//		SeedLimit:    10,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	network := client.Build(ctx, "MBRAS")
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.Searcher == nil {
		return nil, fmt.Errorf("graph client requires a searcher")
	}
	index := params.CompanyIndex
	if index == "" {
		index = defaultCompanyIndex
	}
	seedLimit := params.SeedLimit
	if seedLimit <= 0 {
		seedLimit = defaultSeedLimit
	}
	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	return &GraphClient{
		searcher:     params.Searcher,
		companyIndex: index,
		seedLimit:    seedLimit,
		maxDepth:     maxDepth,
		observer:     params.Observer,
	}, nil
}

// SeedLimit returns the configured seed result bound.
func (g *GraphClient) SeedLimit() int {
	return g.seedLimit
}

func (g *GraphClient) notify(phase Phase, stats PhaseStats) {
	if g.observer == nil {
		return
	}
	g.observer.OnPhase(phase, stats)
}
