package message

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Concurrency model:
// - Idempotency rides on the message_id primary key plus ON CONFLICT DO
//   NOTHING: conflicting writers are serialized by the constraint itself,
//   with no application-level locking.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "public").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("message: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("message: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store and ensures its table
// and indexes exist.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "public",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("message: nil pool")
	}
	if err := st.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s.schema != "public" {
		if _, err := s.pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{s.schema}.Sanitize()); err != nil {
			return err
		}
	}

	messages := s.messagesTable()

	// seq exists only as a stable storage order; the composite index serves
	// every listing and the first/last stats lookups.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + messages + ` (
			message_id  TEXT PRIMARY KEY,
			from_msisdn TEXT NOT NULL,
			to_msisdn   TEXT NOT NULL,
			ts          TIMESTAMPTZ NOT NULL,
			text        TEXT,
			seq         BIGINT GENERATED ALWAYS AS IDENTITY,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_ts_message_id ON ` + messages + ` (ts, message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_from ON ` + messages + ` (from_msisdn)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert persists m idempotently. The uniqueness constraint on message_id is
// the idempotency boundary: a conflicting row is never created and the
// conflict is reported as OutcomeDuplicate, not as an error.
func (s *PostgresStore) Insert(ctx context.Context, m Message) (InsertOutcome, error) {
	if s == nil || s.pool == nil {
		return OutcomeStored, errors.New("message: nil store")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.messagesTable()+` (message_id, from_msisdn, to_msisdn, ts, text)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (message_id) DO NOTHING`,
		m.MessageID, m.From, m.To, m.TS.UTC(), m.Text,
	)
	if err != nil {
		return OutcomeStored, fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeStored, nil
}

// List returns the filtered window ordered by (ts, message_id) ascending and
// the total match count before windowing.
func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Message, int64, error) {
	if s == nil || s.pool == nil {
		return nil, 0, errors.New("message: nil store")
	}
	f = clampWindow(f)

	where, args := listPredicate(f)
	messages := s.messagesTable()

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+messages+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT message_id, from_msisdn, to_msisdn, ts, text, seq
		   FROM %s%s
		  ORDER BY ts ASC, message_id ASC
		  LIMIT $%d OFFSET $%d`,
		messages, where, len(args)+1, len(args)+2,
	)
	rows, err := s.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0, f.Limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.MessageID, &m.From, &m.To, &m.TS, &m.Text, &m.Seq); err != nil {
			return nil, 0, err
		}
		m.TS = m.TS.UTC()
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// listPredicate builds the WHERE clause for f. Query matching uses strpos,
// which is exact and case-sensitive and needs no LIKE-pattern escaping.
func listPredicate(f ListFilter) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if f.From != "" {
		args = append(args, f.From)
		clauses = append(clauses, fmt.Sprintf("from_msisdn = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, f.Since.UTC())
		clauses = append(clauses, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, f.Query)
		clauses = append(clauses, fmt.Sprintf("(text IS NOT NULL AND strpos(text, $%d) > 0)", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Stats computes the aggregates over the whole table.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.pool == nil {
		return Stats{}, errors.New("message: nil store")
	}

	messages := s.messagesTable()
	var st Stats

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+messages).Scan(&st.TotalMessages); err != nil {
		return Stats{}, fmt.Errorf("count messages: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT from_msisdn) FROM `+messages).Scan(&st.SendersCount); err != nil {
		return Stats{}, fmt.Errorf("count senders: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT from_msisdn, COUNT(*) AS cnt
		   FROM `+messages+`
		  GROUP BY from_msisdn
		  ORDER BY cnt DESC, from_msisdn ASC
		  LIMIT 10`,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("top senders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SenderCount
		if err := rows.Scan(&sc.Sender, &sc.Count); err != nil {
			return Stats{}, err
		}
		st.MessagesPerSender = append(st.MessagesPerSender, sc)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	first, err := s.edgeTS(ctx, "ASC")
	if err != nil {
		return Stats{}, err
	}
	last, err := s.edgeTS(ctx, "DESC")
	if err != nil {
		return Stats{}, err
	}
	st.FirstMessageTS = first
	st.LastMessageTS = last

	return st, nil
}

// edgeTS returns the ts of the row that sorts first (dir=ASC) or last
// (dir=DESC) under (ts, message_id), or nil on an empty table.
func (s *PostgresStore) edgeTS(ctx context.Context, dir string) (*time.Time, error) {
	var ts time.Time
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT ts FROM %s ORDER BY ts %s, message_id %s LIMIT 1`, s.messagesTable(), dir, dir),
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("edge ts: %w", err)
	}
	ts = ts.UTC()
	return &ts, nil
}

// Reachable probes the backing database with a bounded trivial read.
func (s *PostgresStore) Reachable(ctx context.Context) bool {
	if s == nil || s.pool == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	return s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one) == nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func (s *PostgresStore) messagesTable() string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{s.schema, "messages"}.Sanitize()
}
