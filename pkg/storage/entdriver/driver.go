// Package entdriver implements storage.Driver on any SQL database that ent's
// dialect builder supports. It is embedded by the sqlite and postgres drivers.
package entdriver

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/ecofes/lubebot/pkg/storage"
)

// EntDriver provides storage operations over an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	Client *entsql.Driver

	// IsUniqueViolation reports whether err is the database's unique
	// constraint error.
	IsUniqueViolation func(error) bool

	now func() time.Time
}

// New wraps an open database and creates the schema.
func New(ctx context.Context, db *stdsql.DB, dialectName string, isUnique func(error) bool) (*EntDriver, error) {
	drv := entsql.OpenDB(dialectName, db)
	ed := &EntDriver{
		Client:            drv,
		IsUniqueViolation: isUnique,
		now:               func() time.Time { return time.Now().UTC() },
	}

	for _, stmt := range schema(dialectName) {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			drv.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return ed, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Client.Dialect())
}

func (ed *EntDriver) postgres() bool {
	return ed.Client.Dialect() == dialect.Postgres
}

// SaveQuery stores a query record.
func (ed *EntDriver) SaveQuery(ctx context.Context, q *storage.QueryRecord) (*storage.QueryRecord, error) {
	if q == nil {
		return nil, errors.New("cannot store nil query record")
	}

	rec := *q
	if rec.Timestamp.IsZero() {
		rec.Timestamp = ed.now()
	}

	insert := ed.builder().Insert(tableQueries).
		Columns(queryColumns[1:]...).
		Values(rec.UserID, rec.Username, rec.QueryText, rec.ResponseText,
			rec.Category, rec.Confidence, rec.Action, rec.Timestamp, rec.IsLead)

	id, err := ed.insert(ctx, ed.Client, insert)
	if err != nil {
		return nil, fmt.Errorf("failed to save query: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

// ListQueries returns query records newest first.
func (ed *EntDriver) ListQueries(ctx context.Context, filter storage.QueryFilter) ([]*storage.QueryRecord, error) {
	selector := ed.builder().Select(queryColumns...).
		From(entsql.Table(tableQueries)).
		OrderBy(entsql.Desc("id"))
	if filter.UserID != 0 {
		selector.Where(entsql.EQ("user_id", filter.UserID))
	}
	switch {
	case filter.Limit > 0:
		selector.Limit(filter.Limit)
	case filter.Offset > 0:
		selector.Limit(math.MaxInt32)
	}
	if filter.Offset > 0 {
		selector.Offset(filter.Offset)
	}

	query, args := selector.Query()
	rows := &entsql.Rows{}
	if err := ed.Client.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	out := []*storage.QueryRecord{}
	for rows.Next() {
		rec := &storage.QueryRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Username, &rec.QueryText, &rec.ResponseText,
			&rec.Category, &rec.Confidence, &rec.Action, &rec.Timestamp, &rec.IsLead); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveLead stores a lead and flags the user's queries in one transaction.
func (ed *EntDriver) SaveLead(ctx context.Context, lead *storage.Lead) (*storage.Lead, error) {
	if lead == nil {
		return nil, storage.ErrInvalidLead
	}
	rec := *lead
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = ed.now()
	}

	tx, err := ed.Client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	insert := ed.builder().Insert(tableLeads).
		Columns(leadColumns[1:]...).
		Values(rec.Name, rec.Email, rec.Phone, rec.Industry, rec.TelegramUsername, rec.UserID, rec.CreatedAt)

	id, err := ed.insert(ctx, tx, insert)
	if err != nil {
		_ = tx.Rollback()
		if ed.IsUniqueViolation != nil && ed.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrDuplicateLead, rec.Email)
		}
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}
	rec.ID = id

	if rec.UserID != 0 {
		query, args := ed.builder().Update(tableQueries).
			Set("is_lead", true).
			Where(entsql.EQ("user_id", rec.UserID)).
			Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to flag queries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lead: %w", err)
	}
	return &rec, nil
}

// GetLead looks a lead up by email.
func (ed *EntDriver) GetLead(ctx context.Context, email string) (*storage.Lead, error) {
	probe := storage.Lead{Email: email}
	probe.Normalize()

	leads, err := ed.selectLeads(ctx, entsql.EQ("email", probe.Email))
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, fmt.Errorf("%w: lead %s", storage.ErrNotFound, probe.Email)
	}
	return leads[0], nil
}

// ListLeads returns all leads, oldest first.
func (ed *EntDriver) ListLeads(ctx context.Context) ([]*storage.Lead, error) {
	return ed.selectLeads(ctx, nil)
}

func (ed *EntDriver) selectLeads(ctx context.Context, where *entsql.Predicate) ([]*storage.Lead, error) {
	selector := ed.builder().Select(leadColumns...).
		From(entsql.Table(tableLeads)).
		OrderBy("id")
	if where != nil {
		selector.Where(where)
	}

	query, args := selector.Query()
	rows := &entsql.Rows{}
	if err := ed.Client.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	out := []*storage.Lead{}
	for rows.Next() {
		l := &storage.Lead{}
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Industry,
			&l.TelegramUsername, &l.UserID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// insert runs an INSERT and returns the new row id. Postgres reports it
// through RETURNING, SQLite through LastInsertId.
func (ed *EntDriver) insert(ctx context.Context, conn dialect.ExecQuerier, insert *entsql.InsertBuilder) (int64, error) {
	if ed.postgres() {
		query, args := insert.Returning("id").Query()
		rows := &entsql.Rows{}
		if err := conn.Query(ctx, query, args, rows); err != nil {
			return 0, err
		}
		defer rows.Close()

		var id int64
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, errors.New("insert returned no id")
		}
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, rows.Close()
	}

	query, args := insert.Query()
	var res stdsql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Close closes the database.
func (ed *EntDriver) Close() error {
	return ed.Client.Close()
}

var _ storage.Driver = (*EntDriver)(nil)
