package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/search"
)

// CompanyByCNPJ fetches a single company by its exact CNPJ. The second
// return value is false when nothing matched or the backend failed.
func (g *GraphClient) CompanyByCNPJ(ctx context.Context, cnpj string) (search.Record, bool) {
	records, err := g.searcher.SearchFilter(ctx, g.companyIndex, cnpjFilter(cnpj), 1)
	if err != nil {
		logger.Warn("[Graph] Company lookup failed", "cnpj", cnpj, "err", err)
		return search.Record{}, false
	}
	if len(records) == 0 {
		return search.Record{}, false
	}
	return records[0], true
}

// CompaniesByCPF finds companies listing cpf among their partners. A limit
// <= 0 uses the default of 50.
func (g *GraphClient) CompaniesByCPF(ctx context.Context, cpf string, limit int) []search.Record {
	if limit <= 0 {
		limit = defaultCPFLimit
	}
	records, err := g.searcher.SearchFields(ctx, g.companyIndex, cpf, limit, []string{fieldPartnerCPFs})
	if err != nil {
		logger.Warn("[Graph] Partner lookup failed", "cpf", cpf, "err", err)
		return nil
	}
	return records
}

func cnpjFilter(cnpj string) string {
	escaped := strings.ReplaceAll(cnpj, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return fmt.Sprintf(`%s = "%s"`, fieldCNPJ, escaped)
}
