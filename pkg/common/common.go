package common

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Network represents the company/partner graph assembled from one seed query.
// It serves as the central structure for the network analysis, capturing which
// partners own which companies.
//
// A network contains:
//   - Companies: registered businesses keyed by CNPJ
//   - Partners: shareholders keyed by CPF, created lazily from ownership entries
//   - Connections: one record per ownership entry, in encounter order
type Network struct {
	ID          string              `json:"id"`
	Query       string              `json:"query"`
	Limit       int                 `json:"limit"`
	CreatedAt   time.Time           `json:"created_at"`
	Companies   map[string]*Company `json:"companies"`
	Partners    map[string]*Partner `json:"socios"`
	Connections []Connection        `json:"connections"`
}

// NewNetwork returns an empty network with all collections initialised, so an
// empty build still exports as empty objects and arrays rather than nulls.
func NewNetwork(id, query string) *Network {
	return &Network{
		ID:          id,
		Query:       query,
		CreatedAt:   time.Now().UTC(),
		Companies:   make(map[string]*Company),
		Partners:    make(map[string]*Partner),
		Connections: []Connection{},
	}
}

// Company is a node for one business registration. Optional attributes are nil
// when the source record did not carry them. Capital keeps the JSON value of
// the source as is; an absent value defaults to 0 while an explicit null stays
// nil.
//
// PartnerCount is the raw number of ownership entries in the source record and
// may exceed the number of connections created for the company.
type Company struct {
	CNPJ         string          `json:"cnpj"`
	LegalName    string          `json:"razao_social"`
	TradeName    *string         `json:"nome_fantasia"`
	Capital      json.RawMessage `json:"capital_social"`
	State        *string         `json:"uf"`
	Status       *string         `json:"situacao"`
	PartnerCount int             `json:"socios_count"`
}

// CapitalValue returns the capital used for ranking. Null and values that
// are not numeric count as 0.
func (c *Company) CapitalValue() float64 {
	if c == nil {
		return 0
	}
	return NumericValue(c.Capital)
}

// NumericValue reads a JSON number or a plain numeric string such as
// "1500.50". Anything else yields 0.
func NumericValue(raw json.RawMessage) float64 {
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.Number:
		return res.Float()
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(res.Str), 64)
		if err == nil {
			return v
		}
	}
	return 0
}

// Partner is a node for one shareholder. Name is taken from the first
// ownership entry that introduced the CPF. Companies holds one CNPJ per
// connection, so it may contain the same company more than once.
type Partner struct {
	CPF       string   `json:"cpf"`
	Name      *string  `json:"nome"`
	Companies []string `json:"companies"`
}

// DisplayName returns the partner name or an empty string when unknown.
func (p *Partner) DisplayName() string {
	if p == nil || p.Name == nil {
		return ""
	}
	return *p.Name
}

// Connection represents one ownership entry linking a company and a partner.
// EntryDate and Percentage carry the source JSON values unchanged.
type Connection struct {
	CNPJ       string          `json:"cnpj"`
	CPF        string          `json:"cpf"`
	Role       *string         `json:"qualificacao"`
	EntryDate  json.RawMessage `json:"data_entrada"`
	Percentage json.RawMessage `json:"percentual"`
}

// Analysis holds the three top-K rankings computed over a network.
type Analysis struct {
	TopPartnersByCompanies []PartnerRank `json:"top_partners_by_companies"`
	TopCompaniesByPartners []CompanyRank `json:"top_companies_by_partners"`
	TopCompaniesByCapital  []CompanyRank `json:"top_companies_by_capital"`
}

// PartnerRank is one row of the partner ranking.
type PartnerRank struct {
	CPF          string `json:"cpf"`
	Name         string `json:"nome"`
	CompanyCount int    `json:"company_count"`
}

// CompanyRank is one row of a company ranking.
type CompanyRank struct {
	CNPJ         string  `json:"cnpj"`
	LegalName    string  `json:"razao_social"`
	PartnerCount int     `json:"socios_count"`
	Capital      float64 `json:"capital_social"`
}
