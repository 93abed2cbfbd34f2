package x402mint

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// Store keeps one row per settlement, keyed by idempotency key. Failed rows
// stay retryable; done rows short-circuit replays without touching the chain.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settlements (
			id TEXT PRIMARY KEY,
			payer TEXT,
			usd TEXT,
			token TEXT,
			amount INTEGER,
			signature TEXT,
			slot INTEGER,
			time INTEGER,
			status TEXT
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveRecord(r SettlementRecord) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO settlements
		(id, payer, usd, token, amount, signature, slot, time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Payer, r.USD, r.Token, r.Amount, r.Signature, r.Slot, r.Time, r.Status)
	return err
}

func (s *Store) LoadRecord(id string) (SettlementRecord, error) {
	var r SettlementRecord
	err := s.db.QueryRow(`
		SELECT id, payer, usd, token, amount, signature, slot, time, status
		FROM settlements WHERE id = ?
	`, id).Scan(&r.ID, &r.Payer, &r.USD, &r.Token, &r.Amount, &r.Signature, &r.Slot, &r.Time, &r.Status)
	return r, err
}

func (s *Store) ListRecords(limit int) ([]SettlementRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, payer, usd, token, amount, signature, slot, time, status
		FROM settlements ORDER BY time DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SettlementRecord
	for rows.Next() {
		var r SettlementRecord
		err := rows.Scan(&r.ID, &r.Payer, &r.USD, &r.Token, &r.Amount, &r.Signature, &r.Slot, &r.Time, &r.Status)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
