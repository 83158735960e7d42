package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/weberc2/dupes/pkg/dupes"
)

// PostgresConfig holds the connection settings for a Postgres database.
// `DefaultPostgresConfig` returns the settings for a local development
// database.
type PostgresConfig struct {
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     string `yaml:"port" envconfig:"PORT"`
	User     string `yaml:"user" envconfig:"USER"`
	Password string `yaml:"password" envconfig:"PASS"`
	DBName   string `yaml:"dbName" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslMode" envconfig:"SSL_MODE"`
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:    "localhost",
		Port:    "5432",
		User:    "postgres",
		DBName:  "postgres",
		SSLMode: "disable",
	}
}

// DSN renders the settings as a libpq connection string.
func (config *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		quote(config.Host),
		quote(config.Port),
		quote(config.User),
		quote(config.Password),
		quote(config.DBName),
		quote(config.SSLMode),
	)
}

func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return "'" + strings.ReplaceAll(value, `'`, `\'`) + "'"
}

type PostgresSearchStore struct {
	DB *sql.DB
}

var _ SearchStore = (*PostgresSearchStore)(nil)

// OpenPostgres connects to the database described by `config` and makes sure
// it is reachable.
func OpenPostgres(
	ctx context.Context,
	config *PostgresConfig,
) (*PostgresSearchStore, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(
			fmt.Errorf("pinging postgres database: %w", err),
			db.Close(),
		)
	}

	return &PostgresSearchStore{DB: db}, nil
}

func (store *PostgresSearchStore) Close() error { return store.DB.Close() }

func (store *PostgresSearchStore) EnsureTable(ctx context.Context) error {
	if _, err := store.DB.ExecContext(ctx, ensureTableQuery); err != nil {
		return fmt.Errorf("creating `searches` postgres table: %w", err)
	}
	return nil
}

const ensureTableQuery = `
CREATE TABLE IF NOT EXISTS searches (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	root TEXT NOT NULL,
	state VARCHAR(16) NOT NULL,
	progress INTEGER NOT NULL,
	groupset JSONB,
	skipped JSONB NOT NULL,
	error TEXT NOT NULL,
	created TIMESTAMPTZ NOT NULL,
	finished TIMESTAMPTZ
);`

func (store *PostgresSearchStore) DropTable(ctx context.Context) error {
	if _, err := store.DB.ExecContext(
		ctx,
		"DROP TABLE IF EXISTS searches",
	); err != nil {
		return fmt.Errorf("dropping table `searches`: %w", err)
	}
	return nil
}

func (store *PostgresSearchStore) ClearTable(ctx context.Context) error {
	if _, err := store.DB.ExecContext(ctx, "DELETE FROM searches"); err != nil {
		return fmt.Errorf("clearing `searches` postgres table: %w", err)
	}
	return nil
}

func (store *PostgresSearchStore) CreateSearch(
	ctx context.Context,
	search *Search,
) (err error) {
	defer func() {
		if err != nil {
			const errUniqueViolation = "23505"
			if e, ok := err.(*pq.Error); ok && e.Code == errUniqueViolation {
				err = &SearchExistsErr{ID: search.ID}
			}
			err = fmt.Errorf("creating search `%s`: %w", search.ID, err)
		}
	}()

	var args []any
	if args, err = searchArgs(search); err != nil {
		return
	}
	_, err = store.DB.ExecContext(ctx, createSearchQuery, args...)
	return
}

const createSearchQuery = `
INSERT INTO searches
	(id, root, state, progress, groupset, skipped, error, created, finished)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9);`

func (store *PostgresSearchStore) PutSearch(
	ctx context.Context,
	search *Search,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("putting search `%s`: %w", search.ID, err)
		}
	}()

	var args []any
	if args, err = searchArgs(search); err != nil {
		return
	}
	_, err = store.DB.ExecContext(ctx, putSearchQuery, args...)
	return
}

const putSearchQuery = `
INSERT INTO searches
	(id, root, state, progress, groupset, skipped, error, created, finished)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	root=$2,
	state=$3,
	progress=$4,
	groupset=$5,
	skipped=$6,
	error=$7,
	created=$8,
	finished=$9;`

func (store *PostgresSearchStore) FetchSearch(
	ctx context.Context,
	id string,
) (search Search, err error) {
	if search, err = scanSearch(store.DB.QueryRowContext(
		ctx,
		fetchSearchQuery,
		id,
	)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = &SearchNotFoundErr{ID: id}
		}
		err = fmt.Errorf("fetching search `%s`: %w", id, err)
	}
	return
}

const fetchSearchQuery = `
SELECT id, root, state, progress, groupset, skipped, error, created, finished
FROM searches WHERE id=$1;`

func (store *PostgresSearchStore) ListSearches(
	ctx context.Context,
) (searches []Search, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("listing searches: %w", err)
		}
	}()

	var rows *sql.Rows
	if rows, err = store.DB.QueryContext(ctx, listSearchesQuery); err != nil {
		return
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	// we don't want to return a `nil` slice because that gets JSON-marshaled
	// to `null` instead of `[]`.
	searches = []Search{}
	for rows.Next() {
		var search Search
		if search, err = scanSearch(rows); err != nil {
			return
		}
		searches = append(searches, search)
	}
	err = rows.Err()
	return
}

const listSearchesQuery = `
SELECT id, root, state, progress, groupset, skipped, error, created, finished
FROM searches ORDER BY created, id;`

func (store *PostgresSearchStore) DeleteSearch(
	ctx context.Context,
	id string,
) (err error) {
	var sentinel int
	if err = store.DB.QueryRowContext(
		ctx,
		"DELETE FROM searches WHERE id=$1 RETURNING 1;",
		id,
	).Scan(&sentinel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf(
				"deleting search: %w",
				&SearchNotFoundErr{ID: id},
			)
		} else {
			err = fmt.Errorf("deleting search `%s`: %w", id, err)
		}
	}
	return
}

func searchArgs(search *Search) ([]any, error) {
	var groups any
	if search.Groups != nil {
		data, err := json.Marshal(search.Groups)
		if err != nil {
			return nil, fmt.Errorf("marshaling groups: %w", err)
		}
		groups = string(data)
	}

	skipped := search.Skipped
	if skipped == nil {
		skipped = []dupes.Skipped{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return nil, fmt.Errorf("marshaling skipped files: %w", err)
	}

	var finished sql.NullTime
	if search.Finished != nil {
		finished = sql.NullTime{Time: *search.Finished, Valid: true}
	}

	return []any{
		search.ID,
		search.Root,
		search.State,
		search.Progress,
		groups,
		string(skippedJSON),
		search.Error,
		search.Created,
		finished,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSearch(row scanner) (search Search, err error) {
	var (
		groups   []byte
		skipped  []byte
		finished sql.NullTime
	)
	if err = row.Scan(
		&search.ID,
		&search.Root,
		&search.State,
		&search.Progress,
		&groups,
		&skipped,
		&search.Error,
		&search.Created,
		&finished,
	); err != nil {
		return
	}

	if groups != nil {
		search.Groups = new(dupes.GroupSet)
		if err = json.Unmarshal(groups, search.Groups); err != nil {
			err = fmt.Errorf("deserializing groups: %w", err)
			return
		}
	}
	if err = json.Unmarshal(skipped, &search.Skipped); err != nil {
		err = fmt.Errorf("deserializing skipped files: %w", err)
		return
	}
	if len(search.Skipped) < 1 {
		search.Skipped = nil
	}
	if finished.Valid {
		search.Finished = &finished.Time
	}
	return
}
