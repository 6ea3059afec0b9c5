// Package store persists pages, chunks, topic evidence packets and scorecard
// rows in SQLite.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joelkehle/esg-scorecard/internal/esg"
	_ "modernc.org/sqlite"
)

// SQLiteStore holds the tabular stages of the pipeline. Every write replaces
// the previous contents of its scope inside one transaction.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pages (
	company     TEXT NOT NULL,
	source_file TEXT NOT NULL,
	page        INTEGER NOT NULL,
	text        TEXT NOT NULL,
	PRIMARY KEY (company, source_file, page)
);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id    INTEGER PRIMARY KEY,
	company     TEXT NOT NULL,
	source_file TEXT NOT NULL,
	page        INTEGER NOT NULL,
	chunk_text  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS chunks_company ON chunks (company, chunk_id);

CREATE TABLE IF NOT EXISTS topic_packets (
	topic_id    TEXT NOT NULL,
	position    INTEGER NOT NULL,
	company     TEXT NOT NULL,
	source_file TEXT NOT NULL,
	page        INTEGER NOT NULL,
	chunk_id    INTEGER NOT NULL,
	chunk_text  TEXT NOT NULL,
	kw_score    INTEGER NOT NULL,
	PRIMARY KEY (topic_id, position)
);

CREATE TABLE IF NOT EXISTS scorecard_rows (
	company      TEXT NOT NULL,
	topic_id     TEXT NOT NULL,
	topic_name   TEXT NOT NULL,
	score        REAL NOT NULL,
	rationale    TEXT NOT NULL DEFAULT '',
	key_evidence TEXT NOT NULL DEFAULT '',
	last_updated TEXT NOT NULL,
	PRIMARY KEY (company, topic_id)
);
`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- pages ---

func (s *SQLiteStore) ReplacePages(ctx context.Context, pages []esg.PageRecord) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pages"); err != nil {
			return fmt.Errorf("clear pages: %w", err)
		}
		for _, p := range pages {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT OR REPLACE INTO pages (company, source_file, page, text) VALUES (:company, :source_file, :page, :text)`, p); err != nil {
				return fmt.Errorf("insert page %s p%d: %w", p.SourceFile, p.Page, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Pages(ctx context.Context) ([]esg.PageRecord, error) {
	var out []esg.PageRecord
	err := s.db.SelectContext(ctx, &out,
		"SELECT company, source_file, page, text FROM pages ORDER BY company, source_file, page")
	return out, err
}

// --- chunks ---

func (s *SQLiteStore) ReplaceChunks(ctx context.Context, chunks []esg.ChunkRecord) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		for _, c := range chunks {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO chunks (chunk_id, company, source_file, page, chunk_text) VALUES (:chunk_id, :company, :source_file, :page, :chunk_text)`, c); err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.ChunkID, err)
			}
		}
		return nil
	})
}

// Chunks returns chunks in chunk_id order, optionally for one company.
func (s *SQLiteStore) Chunks(ctx context.Context, company string) ([]esg.ChunkRecord, error) {
	var out []esg.ChunkRecord
	q := "SELECT chunk_id, company, source_file, page, chunk_text FROM chunks"
	var args []any
	if company != "" {
		q += " WHERE company = ?"
		args = append(args, company)
	}
	q += " ORDER BY chunk_id"
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	return out, nil
}

// --- topic packets ---

type packetRow struct {
	esg.TopicPacket
	Position int `db:"position"`
}

// ReplaceTopicPackets stores the ranked packet for one topic, keeping rank order.
func (s *SQLiteStore) ReplaceTopicPackets(ctx context.Context, topicID string, packets []esg.TopicPacket) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM topic_packets WHERE topic_id = ?", topicID); err != nil {
			return fmt.Errorf("clear topic packets: %w", err)
		}
		for i, p := range packets {
			p.TopicID = topicID
			row := packetRow{TopicPacket: p, Position: i}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO topic_packets (topic_id, position, company, source_file, page, chunk_id, chunk_text, kw_score)
				 VALUES (:topic_id, :position, :company, :source_file, :page, :chunk_id, :chunk_text, :kw_score)`, row); err != nil {
				return fmt.Errorf("insert topic packet %s/%d: %w", topicID, i, err)
			}
		}
		return nil
	})
}

// TopicPackets returns the packet for topicID in rank order, optionally for one company.
func (s *SQLiteStore) TopicPackets(ctx context.Context, topicID, company string) ([]esg.TopicPacket, error) {
	q := "SELECT topic_id, company, source_file, page, chunk_id, chunk_text, kw_score FROM topic_packets WHERE topic_id = ?"
	args := []any{topicID}
	if company != "" {
		q += " AND company = ?"
		args = append(args, company)
	}
	q += " ORDER BY position"
	var out []esg.TopicPacket
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("select topic packets: %w", err)
	}
	return out, nil
}

// --- scorecard ---

type scorecardRow struct {
	Company     string  `db:"company"`
	TopicID     string  `db:"topic_id"`
	TopicName   string  `db:"topic_name"`
	Score       float64 `db:"score"`
	Rationale   string  `db:"rationale"`
	KeyEvidence string  `db:"key_evidence"`
	LastUpdated string  `db:"last_updated"`
}

// ReplaceScorecard swaps the whole scorecard table for rows.
func (s *SQLiteStore) ReplaceScorecard(ctx context.Context, rows []esg.ScorecardRow) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM scorecard_rows"); err != nil {
			return fmt.Errorf("clear scorecard: %w", err)
		}
		for _, r := range rows {
			row := scorecardRow{
				Company:     r.Company,
				TopicID:     r.TopicID,
				TopicName:   r.TopicName,
				Score:       r.Score,
				Rationale:   r.Rationale,
				KeyEvidence: r.KeyEvidence,
				LastUpdated: r.LastUpdated.UTC().Format(time.RFC3339Nano),
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO scorecard_rows (company, topic_id, topic_name, score, rationale, key_evidence, last_updated)
				 VALUES (:company, :topic_id, :topic_name, :score, :rationale, :key_evidence, :last_updated)`, row); err != nil {
				return fmt.Errorf("insert scorecard row %s/%s: %w", r.Company, r.TopicID, err)
			}
		}
		return nil
	})
}

// Scorecard returns rows ordered by (company, topic_id), optionally for one company.
func (s *SQLiteStore) Scorecard(ctx context.Context, company string) ([]esg.ScorecardRow, error) {
	q := "SELECT company, topic_id, topic_name, score, rationale, key_evidence, last_updated FROM scorecard_rows"
	var args []any
	if company != "" {
		q += " WHERE company = ?"
		args = append(args, company)
	}
	q += " ORDER BY company, topic_id"
	var raw []scorecardRow
	if err := s.db.SelectContext(ctx, &raw, q, args...); err != nil {
		return nil, fmt.Errorf("select scorecard: %w", err)
	}
	out := make([]esg.ScorecardRow, 0, len(raw))
	for _, r := range raw {
		ts, err := time.Parse(time.RFC3339Nano, r.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("scorecard %s/%s last_updated: %w", r.Company, r.TopicID, err)
		}
		out = append(out, esg.ScorecardRow{
			Company:     r.Company,
			TopicID:     r.TopicID,
			TopicName:   r.TopicName,
			Score:       r.Score,
			Rationale:   r.Rationale,
			KeyEvidence: r.KeyEvidence,
			LastUpdated: ts,
		})
	}
	return out, nil
}
