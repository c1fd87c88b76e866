// Package tablestore persists a transposition table across process runs in
// a sqlite database. States are gob-encoded; rows are keyed by the xxhash
// of the encoded state so that lookups and the uniqueness index stay cheap.
// The engine itself never touches this package; it is a wrapper for callers
// that want to keep a table warm between sessions.
package tablestore

import (
	"bytes"
	"database/sql"
	"encoding/gob"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/bclement/zugzwang/gamestate"
	"github.com/bclement/zugzwang/negamax"
)

const schema = `
CREATE TABLE IF NOT EXISTS bounds (
	key    INTEGER NOT NULL,
	depth  INTEGER NOT NULL,
	state  BLOB    NOT NULL,
	score  INTEGER NOT NULL,
	flag   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS bounds_key ON bounds (key, depth);
`

// Store is a handle on one sqlite table store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of persisted bound records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bounds`).Scan(&n)
	return n, err
}

// Save replaces the store's contents with a snapshot of t.
func Save[S gamestate.GameState[S]](s *Store, t *negamax.Table[S]) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bounds`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO bounds (key, depth, state, score, flag) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	rows := 0
	for _, rec := range t.Snapshot() {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(rec.State); err != nil {
			return err
		}
		blob := buf.Bytes()
		key := int64(xxhash.Sum64(blob))
		for _, entry := range rec.Entries {
			if _, err := stmt.Exec(key, rec.Depth, blob, entry.Score, entry.Flag); err != nil {
				return err
			}
			rows++
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Int("rows", rows).Msg("table-store-saved")
	return nil
}

// Load merges the store's contents into t.
func Load[S gamestate.GameState[S]](s *Store, t *negamax.Table[S]) error {
	rows, err := s.db.Query(`SELECT depth, state, score, flag FROM bounds ORDER BY key, depth`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var records []negamax.SnapshotRecord[S]
	n := 0
	for rows.Next() {
		var (
			depth, score int
			flag         uint8
			blob         []byte
		)
		if err := rows.Scan(&depth, &blob, &score, &flag); err != nil {
			return err
		}
		var state S
		if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&state); err != nil {
			return err
		}
		records = append(records, negamax.SnapshotRecord[S]{
			Depth:   depth,
			State:   state,
			Entries: []negamax.TableEntry{{Score: score, Flag: flag}},
		})
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	t.Restore(records)
	log.Info().Int("rows", n).Msg("table-store-loaded")
	return nil
}
