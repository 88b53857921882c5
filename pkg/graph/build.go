package graph

import (
	"context"
	"encoding/json"

	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/common"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/search"
)

// Source record fields.
const (
	fieldCNPJ        = "cnpj"
	fieldLegalName   = "razao_social"
	fieldTradeName   = "nome_fantasia"
	fieldCapital     = "capital_social"
	fieldState       = "uf"
	fieldStatus      = "situacao_cadastral"
	fieldPartners    = "socios"
	fieldCPF         = "cpf"
	fieldPartnerName = "nome"
	fieldRole        = "qualificacao"
	fieldEntryDate   = "data_entrada"
	fieldPercentage  = "percentual"
	fieldPartnerCPFs = "socios_cpfs"
)

// Build runs BuildNetwork with the configured seed limit.
func (g *GraphClient) Build(ctx context.Context, seedQuery string) *common.Network {
	return g.BuildNetwork(ctx, seedQuery, g.seedLimit)
}

// BuildNetwork queries the search backend once for at most limit companies
// matching seedQuery and folds their ownership entries into a network.
//
// Search failures are logged and treated as an empty result, so the returned
// network is always valid. A limit <= 0 skips the query and yields an empty
// network.
func (g *GraphClient) BuildNetwork(ctx context.Context, seedQuery string, limit int) *common.Network {
	network := common.NewNetwork(util.NewNetworkID(), seedQuery)
	network.Limit = limit

	if g.maxDepth > 1 {
		logger.Debug("[Graph] Only single hop traversal is performed", "max_depth", g.maxDepth)
	}

	seeds := g.fetchSeeds(ctx, seedQuery, limit)
	g.notify(PhaseSeedFetched, PhaseStats{
		NetworkID: network.ID,
		Query:     seedQuery,
		Seeds:     len(seeds),
	})

	for _, record := range seeds {
		AddCompany(network, record)
	}

	stats := Stats(network)
	stats.Seeds = len(seeds)
	g.notify(PhaseGraphBuilt, stats)

	logger.Info(
		"[Graph] Network built",
		"id", network.ID,
		"companies", stats.Companies,
		"partners", stats.Partners,
		"connections", stats.Connections,
	)

	return network
}

func (g *GraphClient) fetchSeeds(ctx context.Context, seedQuery string, limit int) []search.Record {
	if limit <= 0 {
		return nil
	}
	records, err := g.searcher.SearchText(ctx, g.companyIndex, seedQuery, limit)
	if err != nil {
		logger.Warn("[Graph] Seed search failed, continuing without results", "query", seedQuery, "err", err)
		return nil
	}
	return records
}

// AddCompany folds one search record into network and reports whether it was
// added. Records without a CNPJ and CNPJs already present are skipped without
// touching the network.
func AddCompany(network *common.Network, record search.Record) bool {
	cnpj := record.String(fieldCNPJ)
	if cnpj == "" {
		logger.Debug("[Graph] Skipping record without cnpj")
		return false
	}
	if _, ok := network.Companies[cnpj]; ok {
		return false
	}

	network.Companies[cnpj] = newCompany(cnpj, record)

	for _, entry := range record.Records(fieldPartners) {
		cpf := entry.String(fieldCPF)
		if cpf == "" {
			continue
		}

		partner, ok := network.Partners[cpf]
		if !ok {
			partner = &common.Partner{
				CPF:       cpf,
				Name:      entry.OptionalString(fieldPartnerName),
				Companies: []string{},
			}
			network.Partners[cpf] = partner
		}

		network.Connections = append(network.Connections, common.Connection{
			CNPJ:       cnpj,
			CPF:        cpf,
			Role:       entry.OptionalString(fieldRole),
			EntryDate:  entry.Value(fieldEntryDate),
			Percentage: entry.Value(fieldPercentage),
		})
		partner.Companies = append(partner.Companies, cnpj)
	}

	return true
}

func newCompany(cnpj string, record search.Record) *common.Company {
	// absent capital defaults to 0, an explicit null is kept as nil
	capital := record.Value(fieldCapital)
	if !record.Has(fieldCapital) {
		capital = json.RawMessage("0")
	}

	return &common.Company{
		CNPJ:         cnpj,
		LegalName:    record.String(fieldLegalName),
		TradeName:    record.OptionalString(fieldTradeName),
		Capital:      capital,
		State:        record.OptionalString(fieldState),
		Status:       record.OptionalString(fieldStatus),
		PartnerCount: record.Len(fieldPartners),
	}
}

// Stats returns the collection counts of network.
func Stats(network *common.Network) PhaseStats {
	if network == nil {
		return PhaseStats{}
	}
	return PhaseStats{
		NetworkID:   network.ID,
		Query:       network.Query,
		Companies:   len(network.Companies),
		Partners:    len(network.Partners),
		Connections: len(network.Connections),
	}
}
