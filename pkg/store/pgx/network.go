package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/common"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const (
	upsertNetworkSQL = `
INSERT INTO networks (id, query, seed_limit, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET query = EXCLUDED.query, seed_limit = EXCLUDED.seed_limit, created_at = EXCLUDED.created_at`

	insertCompanySQL = `
INSERT INTO network_companies
    (network_id, cnpj, razao_social, nome_fantasia, capital_social, uf, situacao, socios_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertPartnerSQL = `
INSERT INTO network_partners (network_id, cpf, nome, companies) VALUES ($1, $2, $3, $4)`

	insertConnectionSQL = `
INSERT INTO network_connections
    (network_id, position, cnpj, cpf, qualificacao, data_entrada, percentual)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// SaveNetwork writes the network in a single transaction, replacing any rows
// previously stored under the same id.
func (s *NetworkDBStorage) SaveNetwork(ctx context.Context, network *common.Network) error {
	if network == nil {
		return fmt.Errorf("network is nil")
	}
	if network.ID == "" {
		return fmt.Errorf("network id is empty")
	}

	logger.Debug("[Store][SaveNetwork] Saving network",
		"id", network.ID,
		"companies", len(network.Companies),
		"partners", len(network.Partners),
		"connections", len(network.Connections),
	)

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, upsertNetworkSQL,
		network.ID,
		util.SanitizePostgresText(network.Query),
		network.Limit,
		network.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert network: %w", err)
	}
	for _, table := range []string{"network_companies", "network_partners", "network_connections"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE network_id = $1", network.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	var rows []queuedRow
	for _, cnpj := range sortedKeys(network.Companies) {
		rows = append(rows, queuedRow{insertCompanySQL, companyArgs(network.ID, network.Companies[cnpj])})
	}
	for _, cpf := range sortedKeys(network.Partners) {
		rows = append(rows, queuedRow{insertPartnerSQL, partnerArgs(network.ID, network.Partners[cpf])})
	}
	for i, conn := range network.Connections {
		rows = append(rows, queuedRow{insertConnectionSQL, connectionArgs(network.ID, i, conn)})
	}

	err = store.ChunkRange(len(rows), s.chunkSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, row := range rows[start:end] {
			batch.Queue(row.sql, row.args...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to insert network rows: %w", err)
	}

	return tx.Commit(ctx)
}

// GetNetwork loads a stored network. It returns store.ErrNotFound when the id
// is unknown.
func (s *NetworkDBStorage) GetNetwork(ctx context.Context, id string) (*common.Network, error) {
	network := common.NewNetwork(id, "")
	err := s.conn.QueryRow(ctx,
		"SELECT query, seed_limit, created_at FROM networks WHERE id = $1", id,
	).Scan(&network.Query, &network.Limit, &network.CreatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.loadRows(ctx, network)
}

func (s *NetworkDBStorage) loadRows(ctx context.Context, network *common.Network) (*common.Network, error) {
	id := network.ID

	companyRows, err := s.conn.Query(ctx, `
SELECT cnpj, razao_social, nome_fantasia, capital_social, uf, situacao, socios_count
FROM network_companies WHERE network_id = $1`, id)
	if err != nil {
		return nil, err
	}
	companies, err := pgxv5.CollectRows(companyRows, func(row pgxv5.CollectableRow) (*common.Company, error) {
		var c common.Company
		var capital *string
		err := row.Scan(&c.CNPJ, &c.LegalName, &c.TradeName, &capital, &c.State, &c.Status, &c.PartnerCount)
		c.Capital = rawValue(capital)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}
	for _, c := range companies {
		network.Companies[c.CNPJ] = c
	}

	partnerRows, err := s.conn.Query(ctx,
		"SELECT cpf, nome, companies FROM network_partners WHERE network_id = $1", id)
	if err != nil {
		return nil, err
	}
	partners, err := pgxv5.CollectRows(partnerRows, func(row pgxv5.CollectableRow) (*common.Partner, error) {
		var p common.Partner
		err := row.Scan(&p.CPF, &p.Name, &p.Companies)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load partners: %w", err)
	}
	for _, p := range partners {
		if p.Companies == nil {
			p.Companies = []string{}
		}
		network.Partners[p.CPF] = p
	}

	connRows, err := s.conn.Query(ctx, `
SELECT cnpj, cpf, qualificacao, data_entrada, percentual
FROM network_connections WHERE network_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	connections, err := pgxv5.CollectRows(connRows, func(row pgxv5.CollectableRow) (common.Connection, error) {
		var c common.Connection
		var entryDate, percentage *string
		err := row.Scan(&c.CNPJ, &c.CPF, &c.Role, &entryDate, &percentage)
		c.EntryDate = rawValue(entryDate)
		c.Percentage = rawValue(percentage)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	network.Connections = append(network.Connections, connections...)

	return network, nil
}

// DeleteNetwork removes a network and its child rows. Deleting an unknown id
// returns store.ErrNotFound.
func (s *NetworkDBStorage) DeleteNetwork(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM networks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

type queuedRow struct {
	sql  string
	args []any
}

func companyArgs(networkID string, c *common.Company) []any {
	return []any{
		networkID,
		c.CNPJ,
		util.SanitizePostgresText(c.LegalName),
		util.SanitizePostgresTextPtr(c.TradeName),
		rawText(c.Capital),
		util.SanitizePostgresTextPtr(c.State),
		util.SanitizePostgresTextPtr(c.Status),
		c.PartnerCount,
	}
}

func partnerArgs(networkID string, p *common.Partner) []any {
	companies := p.Companies
	if companies == nil {
		companies = []string{}
	}
	return []any{
		networkID,
		p.CPF,
		util.SanitizePostgresTextPtr(p.Name),
		companies,
	}
}

func connectionArgs(networkID string, position int, c common.Connection) []any {
	return []any{
		networkID,
		position,
		c.CNPJ,
		c.CPF,
		util.SanitizePostgresTextPtr(c.Role),
		rawText(c.EntryDate),
		rawText(c.Percentage),
	}
}

// rawText stores a JSON value as its text so it survives the round trip
// unchanged. nil maps to NULL.
func rawText(v json.RawMessage) *string {
	if v == nil {
		return nil
	}
	s := util.SanitizePostgresText(string(v))
	return &s
}

func rawValue(s *string) json.RawMessage {
	if s == nil {
		return nil
	}
	return json.RawMessage(*s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
