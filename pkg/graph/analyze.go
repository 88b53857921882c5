package graph

import (
	"cmp"
	"slices"

	"github.com/OFFIS-RIT/companynet/pkg/common"

	"golang.org/x/sync/errgroup"
)

// TopN is the length bound of every ranking.
const TopN = 10

// AnalyzeNetwork runs Analyze and notifies the observer.
func (g *GraphClient) AnalyzeNetwork(network *common.Network) common.Analysis {
	analysis := Analyze(network)
	g.notify(PhaseAnalyzed, Stats(network))
	return analysis
}

// Analyze computes the three rankings over network. The passes only read the
// network, so they run concurrently. Ties are broken by ascending identifier.
func Analyze(network *common.Network) common.Analysis {
	analysis := common.Analysis{
		TopPartnersByCompanies: []common.PartnerRank{},
		TopCompaniesByPartners: []common.CompanyRank{},
		TopCompaniesByCapital:  []common.CompanyRank{},
	}
	if network == nil {
		return analysis
	}

	var eg errgroup.Group
	eg.Go(func() error {
		analysis.TopPartnersByCompanies = TopPartnersByCompanies(network, TopN)
		return nil
	})
	eg.Go(func() error {
		analysis.TopCompaniesByPartners = TopCompaniesByPartners(network, TopN)
		return nil
	})
	eg.Go(func() error {
		analysis.TopCompaniesByCapital = TopCompaniesByCapital(network, TopN)
		return nil
	})
	_ = eg.Wait()

	return analysis
}

// TopPartnersByCompanies ranks partners by the length of their company list.
func TopPartnersByCompanies(network *common.Network, n int) []common.PartnerRank {
	partners := make([]*common.Partner, 0, len(network.Partners))
	for _, p := range network.Partners {
		partners = append(partners, p)
	}
	slices.SortFunc(partners, func(a, b *common.Partner) int {
		if c := cmp.Compare(len(b.Companies), len(a.Companies)); c != 0 {
			return c
		}
		return cmp.Compare(a.CPF, b.CPF)
	})

	partners = partners[:min(max(n, 0), len(partners))]
	out := make([]common.PartnerRank, 0, len(partners))
	for _, p := range partners {
		out = append(out, common.PartnerRank{
			CPF:          p.CPF,
			Name:         p.DisplayName(),
			CompanyCount: len(p.Companies),
		})
	}
	return out
}

// TopCompaniesByPartners ranks companies by their raw ownership entry count.
func TopCompaniesByPartners(network *common.Network, n int) []common.CompanyRank {
	return topCompanies(network, n, func(c *common.Company) float64 {
		return float64(c.PartnerCount)
	})
}

// TopCompaniesByCapital ranks companies by capital, with nil counted as 0.
func TopCompaniesByCapital(network *common.Network, n int) []common.CompanyRank {
	return topCompanies(network, n, (*common.Company).CapitalValue)
}

func topCompanies(network *common.Network, n int, key func(*common.Company) float64) []common.CompanyRank {
	companies := make([]*common.Company, 0, len(network.Companies))
	for _, c := range network.Companies {
		companies = append(companies, c)
	}
	slices.SortFunc(companies, func(a, b *common.Company) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.CNPJ, b.CNPJ)
	})

	companies = companies[:min(max(n, 0), len(companies))]
	out := make([]common.CompanyRank, 0, len(companies))
	for _, c := range companies {
		out = append(out, common.CompanyRank{
			CNPJ:         c.CNPJ,
			LegalName:    c.LegalName,
			PartnerCount: c.PartnerCount,
			Capital:      c.CapitalValue(),
		})
	}
	return out
}
