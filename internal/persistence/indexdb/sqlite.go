package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"redstonemusic.ai/internal/sim/engine"
	"redstonemusic.ai/internal/sim/tuning"
)

// SQLiteIndex is a read model of generation results. Writes are queued and
// applied by one goroutine; the journal stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan engine.Result
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	drops  atomic.Uint64
}

type Stats struct {
	DropTotal     uint64 `json:"drop_total"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan engine.Result, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS generations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			format TEXT NOT NULL,
			file_path TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			length INTEGER NOT NULL,
			note_blocks INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			notes_per_row INTEGER NOT NULL,
			total_ticks INTEGER NOT NULL,
			file_size INTEGER NOT NULL,
			strategy TEXT,
			palette_digest TEXT,
			created_at TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordGeneration queues r. It never blocks; a full queue drops the row.
// Rows lost to a failed batch are counted as drops too.
func (s *SQLiteIndex) RecordGeneration(r engine.Result) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- r:
	default:
		s.drops.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropTotal:     s.drops.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

// UpsertCatalogs stores the block palette and the effective tuning so rows
// can be tied back to the inputs that produced them.
func (s *SQLiteIndex) UpsertCatalogs(palette []string, paletteDigest string, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: paletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Lookup returns the indexed result for id.
func (s *SQLiteIndex) Lookup(ctx context.Context, id string) (engine.Result, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT raw_json FROM generations WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Result{}, false, nil
	}
	if err != nil {
		return engine.Result{}, false, err
	}
	var r engine.Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return engine.Result{}, false, err
	}
	return r, true, nil
}

// Recent returns up to limit results, newest first.
func (s *SQLiteIndex) Recent(ctx context.Context, limit int) ([]engine.Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM generations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []engine.Result
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r engine.Result
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insert, _ := s.db.Prepare(`INSERT OR REPLACE INTO generations(
		id,name,format,file_path,success,error,width,height,length,note_blocks,rows,notes_per_row,
		total_ticks,file_size,strategy,palette_digest,created_at,raw_json
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 64
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.drops.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil || insert == nil {
			s.drops.Add(1)
			continue
		}
		raw, _ := json.Marshal(r)
		success := 0
		if r.Success {
			success = 1
		}
		if _, err := tx.Stmt(insert).Exec(
			r.ID, r.Name, r.Format, r.FilePath, success, r.Error,
			r.Dimensions.Width, r.Dimensions.Height, r.Dimensions.Length,
			r.NoteBlocksCount, r.Rows, r.NotesPerRow, r.TotalTimeSpan, r.FileSizeBytes,
			r.Strategy, r.PaletteDigest, r.CreatedAt, string(raw),
		); err != nil {
			// The rollback discards the uncommitted batch along with r.
			s.drops.Add(uint64(opCount + 1))
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}
