package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"

	maxCreateAttempts = 5
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	seq         BIGSERIAL,
	id          BIGINT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	price       DOUBLE PRECISION NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT '',
	extra       JSONB
)`

// PostgresStore keeps the catalog in an items table. Insertion order is the
// bigserial seq column, not the id.
type PostgresStore struct {
	db *sql.DB

	mu  sync.Mutex
	ids IDGenerator
}

// OpenPostgres opens a pool through the pgx database/sql driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB, ids IDGenerator) *PostgresStore {
	if ids == nil {
		ids = NewClockIDs(nil)
	}
	return &PostgresStore{db: db, ids: ids}
}

// Migrate creates the items table and inserts seed when the table is empty.
func (s *PostgresStore) Migrate(ctx context.Context, seed []Item) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("create items table: %w", err)
		}

		var maxID sql.NullInt64
		if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM items`).Scan(&maxID); err != nil {
			return fmt.Errorf("read max id: %w", err)
		}
		if maxID.Valid {
			s.observe(maxID.Int64)
			return nil
		}

		for i := range seed {
			if err := s.insert(ctx, seed[i]); err != nil {
				return fmt.Errorf("seed item %d: %w", seed[i].ID, err)
			}
			s.observe(seed[i].ID)
		}
		return nil
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) List(ctx context.Context) ([]Item, error) {
	out := make([]Item, 0, 16)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, price, description, image, extra
			FROM items
			ORDER BY seq ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Item, bool, error) {
	n, ok := ParseID(id)
	if !ok {
		return Item{}, false, nil
	}

	var it Item
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		it, err = scanItem(s.db.QueryRowContext(ctx, `
			SELECT id, name, price, description, image, extra
			FROM items
			WHERE id = $1
		`, n))
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("get item: %w", err)
	}
	return it, true, nil
}

func (s *PostgresStore) Create(ctx context.Context, in *Item) (Item, error) {
	if in == nil {
		return Item{}, ErrNilItem
	}
	it := cloneItem(*in)

	// Another replica may have taken the id; move on to the next one.
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		s.mu.Lock()
		it.ID = s.ids.Next()
		s.mu.Unlock()

		err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
			return s.insert(ctx, it)
		})
		if isUniqueViolation(err) {
			s.observe(it.ID)
			continue
		}
		if err != nil {
			return Item{}, fmt.Errorf("create item: %w", err)
		}
		return it, nil
	}
	return Item{}, ErrDuplicateID
}

func (s *PostgresStore) insert(ctx context.Context, it Item) error {
	var extra []byte
	if len(it.Extra) > 0 {
		b, err := json.Marshal(it.Extra)
		if err != nil {
			return err
		}
		extra = b
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, price, description, image, extra)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, it.ID, it.Name, it.Price, it.Description, it.Image, extra)
	return err
}

func (s *PostgresStore) observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids.Observe(id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var (
		it    Item
		extra []byte
	)
	if err := row.Scan(&it.ID, &it.Name, &it.Price, &it.Description, &it.Image, &extra); err != nil {
		return Item{}, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &it.Extra); err != nil {
			return Item{}, fmt.Errorf("decode extra: %w", err)
		}
	}
	return it, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
