package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

// Postgres implementa o Store de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// EnsureSchema cria a tabela de apostas se não existir
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lottery_bets (
		  id         BIGSERIAL PRIMARY KEY,
		  agency     INTEGER NOT NULL,
		  document   TEXT    NOT NULL,
		  first_name TEXT    NOT NULL,
		  last_name  TEXT    NOT NULL,
		  birthdate  DATE    NOT NULL,
		  number     INTEGER NOT NULL,
		  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("%w: ensure schema: %v", ErrStoreIO, err)
	}
	return nil
}

// Append insere o batch numa única transação; ou entra tudo, ou nada
func (p *Postgres) Append(ctx context.Context, bets []lottery.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStoreIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lottery_bets (agency, document, first_name, last_name, birthdate, number)
		VALUES ($1,$2,$3,$4,$5,$6)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", ErrStoreIO, err)
	}
	defer stmt.Close()

	for _, b := range bets {
		if _, err := stmt.ExecContext(ctx, b.Agency, b.Document, b.FirstName, b.LastName, b.Birthdate, b.Number); err != nil {
			return fmt.Errorf("%w: insert bet %s: %v", ErrStoreIO, b.Document, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStoreIO, err)
	}
	return nil
}

// ScanAll lê todas as apostas na ordem de inserção
func (p *Postgres) ScanAll(ctx context.Context) ([]lottery.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT agency, document, first_name, last_name, to_char(birthdate, 'YYYY-MM-DD'), number
		FROM lottery_bets
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStoreIO, err)
	}
	defer rows.Close()

	var bets []lottery.Bet
	for rows.Next() {
		var b lottery.Bet
		if err := rows.Scan(&b.Agency, &b.Document, &b.FirstName, &b.LastName, &b.Birthdate, &b.Number); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStoreIO, err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStoreIO, err)
	}
	return bets, nil
}
