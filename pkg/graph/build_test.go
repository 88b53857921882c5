package graph

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/companynet/pkg/common"
	"github.com/OFFIS-RIT/companynet/pkg/search"
)

func newTestClient(t *testing.T, s search.Searcher, observer Observer) *GraphClient {
	t.Helper()
	g, err := NewGraphClient(NewGraphClientParams{Searcher: s, Observer: observer})
	if err != nil {
		t.Fatalf("NewGraphClient failed: %v", err)
	}
	return g
}

func TestNewGraphClient_Defaults(t *testing.T) {
	g, err := NewGraphClient(NewGraphClientParams{Searcher: search.NewStaticSearcher()})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if g.companyIndex != "companies" || g.seedLimit != 10 || g.maxDepth != 1 {
		t.Fatalf("unexpected defaults: index=%q limit=%d depth=%d", g.companyIndex, g.seedLimit, g.maxDepth)
	}

	if _, err := NewGraphClient(NewGraphClientParams{}); err == nil {
		t.Fatal("expected error without searcher")
	}
}

func TestBuildNetwork_OwnershipScenario(t *testing.T) {
	s := search.NewStaticSearcher(`{
		"cnpj": "A",
		"razao_social": "Acme",
		"capital_social": 1000,
		"socios": [
			{"cpf": "P1", "nome": "Jo"},
			{"cpf": "P1", "nome": "Jo"},
			{"cpf": "", "nome": "Anon"}
		]
	}`)
	g := newTestClient(t, s, nil)

	network := g.BuildNetwork(context.Background(), "acme", 10)

	if len(network.Companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(network.Companies))
	}
	company := network.Companies["A"]
	if company == nil {
		t.Fatal("expected company A")
	}
	if company.PartnerCount != 3 {
		t.Fatalf("expected socios_count 3, got %d", company.PartnerCount)
	}
	if string(company.Capital) != "1000" {
		t.Fatalf("expected capital 1000, got %s", company.Capital)
	}

	if len(network.Partners) != 1 {
		t.Fatalf("expected 1 partner, got %d", len(network.Partners))
	}
	p1 := network.Partners["P1"]
	if p1 == nil {
		t.Fatal("expected partner P1")
	}
	if !reflect.DeepEqual(p1.Companies, []string{"A", "A"}) {
		t.Fatalf("expected companies [A A], got %v", p1.Companies)
	}
	if p1.DisplayName() != "Jo" {
		t.Fatalf("expected name Jo, got %q", p1.DisplayName())
	}

	if len(network.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(network.Connections))
	}
	for i, c := range network.Connections {
		if c.CNPJ != "A" || c.CPF != "P1" {
			t.Fatalf("unexpected connection %d: %+v", i, c)
		}
	}
}

func TestBuildNetwork_DuplicateCompanyFirstWins(t *testing.T) {
	s := search.NewStaticSearcher(
		`{"cnpj":"A","capital_social":500,"socios":[]}`,
		`{"cnpj":"A","capital_social":900,"socios":[{"cpf":"P2"}]}`,
	)
	g := newTestClient(t, s, nil)

	network := g.BuildNetwork(context.Background(), "acme", 10)

	if len(network.Companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(network.Companies))
	}
	if got := network.Companies["A"].Capital; string(got) != "500" {
		t.Fatalf("expected capital 500 from first occurrence, got %s", got)
	}
	if network.Companies["A"].PartnerCount != 0 {
		t.Fatalf("expected socios_count 0, got %d", network.Companies["A"].PartnerCount)
	}
	if _, ok := network.Partners["P2"]; ok {
		t.Fatal("partner P2 must not be created from a duplicate record")
	}
	if len(network.Connections) != 0 {
		t.Fatalf("expected no connections, got %d", len(network.Connections))
	}
}

func TestBuildNetwork_PartnerMergeAcrossCompanies(t *testing.T) {
	s := search.NewStaticSearcher(
		`{"cnpj":"A","razao_social":"Alpha","socios":[{"cpf":"P1","nome":"First Name","qualificacao":"Sócio-Administrador","data_entrada":"2019-01-02","percentual":50}]}`,
		`{"cnpj":"B","razao_social":"Beta","socios":[{"cpf":"P1","nome":"Other Name"},{"cpf":"P2","nome":"Maria"}]}`,
	)
	g := newTestClient(t, s, nil)

	network := g.BuildNetwork(context.Background(), "x", 10)

	p1 := network.Partners["P1"]
	if p1 == nil || p1.DisplayName() != "First Name" {
		t.Fatalf("expected name from first connection, got %+v", p1)
	}
	if !reflect.DeepEqual(p1.Companies, []string{"A", "B"}) {
		t.Fatalf("expected companies [A B], got %v", p1.Companies)
	}

	wantOrder := [][2]string{{"A", "P1"}, {"B", "P1"}, {"B", "P2"}}
	if len(network.Connections) != len(wantOrder) {
		t.Fatalf("expected %d connections, got %d", len(wantOrder), len(network.Connections))
	}
	for i, want := range wantOrder {
		c := network.Connections[i]
		if c.CNPJ != want[0] || c.CPF != want[1] {
			t.Fatalf("connection %d: got (%s,%s), want (%s,%s)", i, c.CNPJ, c.CPF, want[0], want[1])
		}
	}

	first := network.Connections[0]
	if first.Role == nil || *first.Role != "Sócio-Administrador" {
		t.Fatalf("unexpected role %v", first.Role)
	}
	if string(first.EntryDate) != `"2019-01-02"` {
		t.Fatalf("unexpected entry date %s", first.EntryDate)
	}
	if string(first.Percentage) != "50" {
		t.Fatalf("unexpected percentage %s", first.Percentage)
	}
	if network.Connections[1].Role != nil || network.Connections[1].Percentage != nil {
		t.Fatalf("expected absent connection attributes to stay nil: %+v", network.Connections[1])
	}
}

func TestBuildNetwork_OptionalDefaults(t *testing.T) {
	s := search.NewStaticSearcher(
		`{"cnpj":"A","razao_social":"Alpha"}`,
		`{"cnpj":"B","razao_social":"Beta","capital_social":null,"nome_fantasia":"B Shop","uf":"RJ","situacao_cadastral":"ATIVA","socios":null}`,
	)
	g := newTestClient(t, s, nil)

	network := g.BuildNetwork(context.Background(), "x", 10)

	a := network.Companies["A"]
	if string(a.Capital) != "0" {
		t.Fatalf("expected absent capital to default to 0, got %s", a.Capital)
	}
	if a.TradeName != nil || a.State != nil || a.Status != nil {
		t.Fatalf("expected absent optional fields to be nil: %+v", a)
	}
	if a.PartnerCount != 0 {
		t.Fatalf("expected socios_count 0, got %d", a.PartnerCount)
	}

	b := network.Companies["B"]
	if b.Capital != nil {
		t.Fatalf("expected explicit null capital to stay nil, got %s", b.Capital)
	}
	if b.CapitalValue() != 0 {
		t.Fatalf("expected null capital to rank as 0, got %v", b.CapitalValue())
	}
	if b.TradeName == nil || *b.TradeName != "B Shop" || *b.State != "RJ" || *b.Status != "ATIVA" {
		t.Fatalf("unexpected optional fields: %+v", b)
	}
}

func TestBuildNetwork_SkipsRecordWithoutCNPJ(t *testing.T) {
	s := search.NewStaticSearcher(
		`{"razao_social":"Nameless","socios":[{"cpf":"P9"}]}`,
		`{"cnpj":"A","razao_social":"Alpha"}`,
	)
	g := newTestClient(t, s, nil)

	network := g.BuildNetwork(context.Background(), "x", 10)

	if len(network.Companies) != 1 || network.Companies["A"] == nil {
		t.Fatalf("expected only company A, got %v", network.Companies)
	}
	if len(network.Partners) != 0 {
		t.Fatalf("expected no partners, got %d", len(network.Partners))
	}
}

func TestBuildNetwork_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name     string
		searcher *search.StaticSearcher
		query    string
		limit    int
	}{
		{"ZeroLimit", search.NewStaticSearcher(`{"cnpj":"A"}`), "", 0},
		{"NoResults", search.NewStaticSearcher(), "nothing", 10},
		{"BackendFailure", &search.StaticSearcher{Err: search.ErrBadStatus}, "acme", 10},
		{"DecodeFailure", &search.StaticSearcher{Err: search.ErrDecode}, "acme", 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestClient(t, tc.searcher, nil)
			network := g.BuildNetwork(context.Background(), tc.query, tc.limit)

			if network == nil {
				t.Fatal("expected a network")
			}
			if len(network.Companies) != 0 || len(network.Partners) != 0 || len(network.Connections) != 0 {
				t.Fatalf("expected empty network, got %d/%d/%d",
					len(network.Companies), len(network.Partners), len(network.Connections))
			}
			if network.Connections == nil {
				t.Fatal("connections must be an empty slice, not nil")
			}

			analysis := Analyze(network)
			if len(analysis.TopPartnersByCompanies) != 0 ||
				len(analysis.TopCompaniesByPartners) != 0 ||
				len(analysis.TopCompaniesByCapital) != 0 {
				t.Fatalf("expected empty analysis, got %+v", analysis)
			}
		})
	}
}

func TestBuildNetwork_ZeroLimitSkipsQuery(t *testing.T) {
	s := search.NewStaticSearcher(`{"cnpj":"A"}`)
	g := newTestClient(t, s, nil)

	g.BuildNetwork(context.Background(), "", 0)

	if calls := s.Calls(); len(calls) != 0 {
		t.Fatalf("expected no search calls, got %+v", calls)
	}
}

func TestBuild_UsesSeedLimitOnce(t *testing.T) {
	s := search.NewStaticSearcher()
	g, err := NewGraphClient(NewGraphClientParams{Searcher: s, CompanyIndex: "empresas", SeedLimit: 7})
	if err != nil {
		t.Fatalf("NewGraphClient failed: %v", err)
	}

	network := g.Build(context.Background(), "BANCO DO BRASIL")

	calls := s.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one search call, got %d", len(calls))
	}
	want := search.Call{Op: "text", Index: "empresas", Query: "BANCO DO BRASIL", Limit: 7}
	if !reflect.DeepEqual(calls[0], want) {
		t.Fatalf("unexpected call %+v, want %+v", calls[0], want)
	}
	if network.Query != "BANCO DO BRASIL" || network.ID == "" {
		t.Fatalf("unexpected network metadata: id=%q query=%q", network.ID, network.Query)
	}
}

func TestBuildNetwork_ObserverPhases(t *testing.T) {
	s := search.NewStaticSearcher(
		`{"cnpj":"A","socios":[{"cpf":"P1"}]}`,
		`{"cnpj":"A"}`,
	)

	var phases []Phase
	var stats []PhaseStats
	g := newTestClient(t, s, ObserverFunc(func(phase Phase, st PhaseStats) {
		phases = append(phases, phase)
		stats = append(stats, st)
	}))

	network := g.BuildNetwork(context.Background(), "acme", 10)
	g.AnalyzeNetwork(network)

	wantPhases := []Phase{PhaseSeedFetched, PhaseGraphBuilt, PhaseAnalyzed}
	if !reflect.DeepEqual(phases, wantPhases) {
		t.Fatalf("unexpected phases %v", phases)
	}
	if stats[0].Seeds != 2 || stats[0].Companies != 0 {
		t.Fatalf("unexpected seed stats %+v", stats[0])
	}
	if stats[1].Seeds != 2 || stats[1].Companies != 1 || stats[1].Partners != 1 || stats[1].Connections != 1 {
		t.Fatalf("unexpected graph stats %+v", stats[1])
	}
}

func TestAddCompany_ReportsSkips(t *testing.T) {
	network := common.NewNetwork("id", "q")

	if !AddCompany(network, search.ParseRecord(`{"cnpj":"A"}`)) {
		t.Fatal("expected first record to be added")
	}
	if AddCompany(network, search.ParseRecord(`{"cnpj":"A"}`)) {
		t.Fatal("expected duplicate record to be skipped")
	}
	if AddCompany(network, search.ParseRecord(`{"razao_social":"x"}`)) {
		t.Fatal("expected record without cnpj to be skipped")
	}
}

func TestBuildNetwork_EdgeCountInvariant(t *testing.T) {
	s := search.NewStaticSearcher(
		`{"cnpj":"A","socios":[{"cpf":"1"},{"nome":"no cpf"},{"cpf":null},{"cpf":"2"}]}`,
		`{"cnpj":"B","socios":[{"cpf":"1"},{"cpf":""}]}`,
	)
	g := newTestClient(t, s, nil)

	network := g.BuildNetwork(context.Background(), "x", 10)

	perCompany := map[string]int{}
	for _, c := range network.Connections {
		perCompany[c.CNPJ]++
		if _, ok := network.Companies[c.CNPJ]; !ok {
			t.Fatalf("connection references unknown company %q", c.CNPJ)
		}
		if _, ok := network.Partners[c.CPF]; !ok {
			t.Fatalf("connection references unknown partner %q", c.CPF)
		}
	}
	if perCompany["A"] != 2 || perCompany["B"] != 1 {
		t.Fatalf("unexpected connection counts %v", perCompany)
	}
	if network.Companies["A"].PartnerCount != 4 || network.Companies["B"].PartnerCount != 2 {
		t.Fatalf("socios_count must count raw entries: A=%d B=%d",
			network.Companies["A"].PartnerCount, network.Companies["B"].PartnerCount)
	}
	for cpf, p := range network.Partners {
		n := 0
		for _, c := range network.Connections {
			if c.CPF == cpf {
				n++
			}
		}
		if len(p.Companies) != n {
			t.Fatalf("partner %s: %d companies but %d connections", cpf, len(p.Companies), n)
		}
	}
}

func TestBuildNetwork_MaxDepthSingleHop(t *testing.T) {
	s := search.NewStaticSearcher(`{"cnpj":"A","socios":[{"cpf":"P1","nome":"Jo"}]}`)
	g, err := NewGraphClient(NewGraphClientParams{Searcher: s, MaxDepth: 3})
	if err != nil {
		t.Fatalf("NewGraphClient failed: %v", err)
	}

	network := g.BuildNetwork(context.Background(), "acme", 10)
	if len(network.Companies) != 1 || len(network.Connections) != 1 {
		t.Fatalf("unexpected network: %d companies, %d connections", len(network.Companies), len(network.Connections))
	}
	if calls := s.Calls(); len(calls) != 1 || calls[0].Op != "text" {
		t.Fatalf("expected a single seed query, got %+v", calls)
	}
}

func TestBuildNetwork_KeepsSourceValues(t *testing.T) {
	s := search.NewStaticSearcher(`{
		"cnpj": "A",
		"capital_social": "1.000,00",
		"socios": [
			{"cpf": "P1", "percentual": "12,5", "data_entrada": 20200101},
			{"cpf": "P2", "percentual": 33.3, "data_entrada": null}
		]
	}`)
	g := newTestClient(t, s, nil)

	network := g.BuildNetwork(context.Background(), "acme", 10)

	company := network.Companies["A"]
	if string(company.Capital) != `"1.000,00"` {
		t.Fatalf("expected capital text to be kept, got %s", company.Capital)
	}
	if company.CapitalValue() != 0 {
		t.Fatalf("expected non-numeric capital to rank as 0, got %v", company.CapitalValue())
	}

	tests := []struct {
		percentage string
		entryDate  string
	}{
		{`"12,5"`, "20200101"},
		{"33.3", ""},
	}
	for i, tc := range tests {
		c := network.Connections[i]
		if string(c.Percentage) != tc.percentage {
			t.Fatalf("connection %d: expected percentual %s, got %s", i, tc.percentage, c.Percentage)
		}
		if string(c.EntryDate) != tc.entryDate {
			t.Fatalf("connection %d: expected data_entrada %q, got %q", i, tc.entryDate, c.EntryDate)
		}
	}

	var doc struct {
		Companies   map[string]map[string]any `json:"companies"`
		Connections []map[string]any          `json:"connections"`
	}
	raw, err := json.Marshal(network)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if doc.Companies["A"]["capital_social"] != "1.000,00" {
		t.Fatalf("unexpected exported capital %v", doc.Companies["A"]["capital_social"])
	}
	if doc.Connections[0]["percentual"] != "12,5" || doc.Connections[0]["data_entrada"] != float64(20200101) {
		t.Fatalf("unexpected exported connection %v", doc.Connections[0])
	}
	if doc.Connections[1]["data_entrada"] != nil {
		t.Fatalf("expected null data_entrada, got %v", doc.Connections[1]["data_entrada"])
	}
}
