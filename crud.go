package restql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/restql/batch"
	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/policy"
	"github.com/syssam/restql/querylanguage"
	"github.com/syssam/restql/schema"
)

// FindParams are the raw read-query parameters as they arrive from the
// caller: comma-separated lists for fields, relations, and sort, and a
// filter map whose dotted keys address related tables.
type FindParams struct {
	Fields    string
	Relations string
	Sort      string
	Where     map[string]any
	Limit     int
	Offset    int
}

// Schema returns the canonical schema of a table, introspected or served
// from the cache.
func (c *Client) Schema(ctx context.Context, table string) (*schema.Schema, error) {
	s, err := c.loader.Schema(ctx, table)
	if err != nil {
		if schema.IsNotFound(err) {
			return nil, &NotFoundError{table: table}
		}
		return nil, &QueryError{Table: table, Op: "schema", RequestID: uuid.NewString(), Err: err}
	}
	return s, nil
}

// FindMany runs a paginated read. The total is counted first; when it is
// zero the SELECT is skipped and an empty page is returned.
func (c *Client) FindMany(ctx context.Context, table string, params FindParams) (*Page, error) {
	reqID := uuid.NewString()
	start := time.Now()
	if err := c.evalQuery(ctx, table, policy.OpFind, &params); err != nil {
		return nil, err
	}
	req, err := c.buildFindRequest(ctx, table, params, reqID)
	if err != nil {
		return nil, err
	}
	countStmt, err := c.compiler.Count(req)
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
	}
	total, err := c.queryCount(ctx, countStmt)
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
	}
	var records []Record
	if total > 0 {
		stmt, err := c.compiler.Find(req)
		if err != nil {
			return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
		}
		rows, err := c.queryRows(ctx, stmt)
		if err != nil {
			return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
		}
		records, err = newReshaper(req.Schema, req.Relations).Reshape(rows)
		if err != nil {
			return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
		}
	}
	c.log.LogAttrs(ctx, slog.LevelDebug, "find many",
		slog.String("request", reqID),
		slog.String("table", table),
		slog.Int("total", total),
		slog.Duration("took", time.Since(start)),
	)
	return newPage(records, total, req.Limit, req.Offset), nil
}

// FindOne reads a single record by primary key. Fields and relations from
// params apply; filters, sorting, and pagination do not.
func (c *Client) FindOne(ctx context.Context, table string, id any, params FindParams) (Record, error) {
	reqID := uuid.NewString()
	params.Where = nil
	params.Sort = ""
	params.Limit = 1
	params.Offset = 0
	if err := c.evalQuery(ctx, table, policy.OpFind, &params); err != nil {
		return nil, err
	}
	req, err := c.buildFindRequest(ctx, table, params, reqID)
	if err != nil {
		return nil, err
	}
	if req.Schema.PrimaryKey == "" {
		return nil, &QueryError{Table: table, Op: "find-one", RequestID: reqID,
			Err: fmt.Errorf("table has no primary key")}
	}
	req.Where = append(req.Where, querylanguage.FilterCondition{
		Column: req.Schema.PrimaryKey, Op: querylanguage.OpEQ, Value: id,
	})
	stmt, err := c.compiler.Find(req)
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find-one", RequestID: reqID, Err: err}
	}
	rows, err := c.queryRows(ctx, stmt)
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find-one", RequestID: reqID, Err: err}
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{table: table, id: id}
	}
	records, err := newReshaper(req.Schema, req.Relations).Reshape(rows[:1])
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find-one", RequestID: reqID, Err: err}
	}
	return records[0], nil
}

// FindByIDs loads many records by primary key in one IN query and
// returns them in the order of ids, with a per-position error for ids
// that matched no record. Intended as the batch function behind a
// dataloader.
func (c *Client) FindByIDs(ctx context.Context, table string, ids []any) ([]Record, []error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s, err := c.Schema(ctx, table)
	if err != nil {
		return nil, []error{err}
	}
	if s.PrimaryKey == "" {
		return nil, []error{&QueryError{Table: table, Op: "find", RequestID: uuid.NewString(),
			Err: fmt.Errorf("table has no primary key")}}
	}
	page, err := c.FindMany(ctx, table, FindParams{
		Where: map[string]any{s.PrimaryKey: map[string]any{"in": ids}},
		Limit: len(ids),
	})
	if err != nil {
		return nil, []error{err}
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprint(id)
	}
	return batch.OrderByKeys(keys, page.Data, func(r Record) string {
		return fmt.Sprint(r[s.PrimaryKey])
	})
}

// Count returns the number of records matching the params, ignoring
// pagination.
func (c *Client) Count(ctx context.Context, table string, params FindParams) (int, error) {
	reqID := uuid.NewString()
	if err := c.evalQuery(ctx, table, policy.OpCount, &params); err != nil {
		return 0, err
	}
	req, err := c.buildFindRequest(ctx, table, params, reqID)
	if err != nil {
		return 0, err
	}
	stmt, err := c.compiler.Count(req)
	if err != nil {
		return 0, &QueryError{Table: table, Op: "count", RequestID: reqID, Err: err}
	}
	n, err := c.queryCount(ctx, stmt)
	if err != nil {
		return 0, &QueryError{Table: table, Op: "count", RequestID: reqID, Err: err}
	}
	return n, nil
}

// CreateOne validates and inserts one record and returns it as stored,
// including generated and defaulted columns.
func (c *Client) CreateOne(ctx context.Context, table string, record map[string]any) (Record, error) {
	reqID := uuid.NewString()
	if err := c.evalMutation(ctx, &policy.Mutation{Table: table, Op: policy.OpCreate, Record: record}); err != nil {
		return nil, err
	}
	s, err := c.Schema(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := c.validateWrite(s, record, true); err != nil {
		return nil, err
	}
	if err := c.probeUniques(ctx, s, record, nil); err != nil {
		return nil, err
	}
	stmt, err := c.compiler.Insert(s, record)
	if err != nil {
		return nil, &MutationError{Table: table, Op: "create", RequestID: reqID, Err: err}
	}
	id, err := c.execInsert(ctx, s, record, stmt)
	if err != nil {
		if verr := constraintToValidation(err); verr != nil {
			return nil, verr
		}
		return nil, &MutationError{Table: table, Op: "create", RequestID: reqID, Err: err}
	}
	c.log.LogAttrs(ctx, slog.LevelDebug, "create one",
		slog.String("request", reqID),
		slog.String("table", table),
		slog.Any("id", id),
	)
	if id == nil {
		return record, nil
	}
	return c.FindOne(policy.DecisionContext(ctx, policy.Allow), table, id, FindParams{})
}

// UpdateOne validates and applies a partial update by primary key and
// returns the record as stored afterwards.
func (c *Client) UpdateOne(ctx context.Context, table string, id any, record map[string]any) (Record, error) {
	reqID := uuid.NewString()
	if err := c.evalMutation(ctx, &policy.Mutation{Table: table, Op: policy.OpUpdate, ID: id, Record: record}); err != nil {
		return nil, err
	}
	s, err := c.Schema(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := c.validateWrite(s, record, false); err != nil {
		return nil, err
	}
	if err := c.probeUniques(ctx, s, record, id); err != nil {
		return nil, err
	}
	stmt, err := c.compiler.Update(s, id, record)
	if err != nil {
		return nil, &MutationError{Table: table, Op: "update", RequestID: reqID, Err: err}
	}
	affected, err := c.exec(ctx, stmt)
	if err != nil {
		if verr := constraintToValidation(err); verr != nil {
			return nil, verr
		}
		return nil, &MutationError{Table: table, Op: "update", RequestID: reqID, Err: err}
	}
	if affected == 0 {
		return nil, &NotFoundError{table: table, id: id}
	}
	c.log.LogAttrs(ctx, slog.LevelDebug, "update one",
		slog.String("request", reqID),
		slog.String("table", table),
		slog.Any("id", id),
	)
	return c.FindOne(policy.DecisionContext(ctx, policy.Allow), table, id, FindParams{})
}

// DeleteOne removes one record by primary key and returns the number of
// records deleted. When a soft-delete column is configured and present on
// the table, the delete is an update stamping that column instead.
func (c *Client) DeleteOne(ctx context.Context, table string, id any) (int, error) {
	reqID := uuid.NewString()
	if err := c.evalMutation(ctx, &policy.Mutation{Table: table, Op: policy.OpDelete, ID: id}); err != nil {
		return 0, err
	}
	s, err := c.Schema(ctx, table)
	if err != nil {
		return 0, err
	}
	if c.softDelete != "" && s.HasColumn(c.softDelete) {
		// The delete decision above covers the stamping update.
		allowed := policy.DecisionContext(ctx, policy.Allow)
		if _, err := c.UpdateOne(allowed, table, id, map[string]any{
			c.softDelete: time.Now().UTC(),
		}); err != nil {
			return 0, err
		}
		return 1, nil
	}
	stmt, err := c.compiler.Delete(s, id)
	if err != nil {
		return 0, &MutationError{Table: table, Op: "delete", RequestID: reqID, Err: err}
	}
	affected, err := c.exec(ctx, stmt)
	if err != nil {
		if verr := constraintToValidation(err); verr != nil {
			return 0, verr
		}
		return 0, &MutationError{Table: table, Op: "delete", RequestID: reqID, Err: err}
	}
	if affected == 0 {
		return 0, &NotFoundError{table: table, id: id}
	}
	c.log.LogAttrs(ctx, slog.LevelDebug, "delete one",
		slog.String("request", reqID),
		slog.String("table", table),
		slog.Any("id", id),
	)
	return int(affected), nil
}

// Migrate creates the given tables and their foreign-key constraints in
// one transaction, then drops any cached snapshots for them.
func (c *Client) Migrate(ctx context.Context, schemas ...*schema.Schema) error {
	var stmts []sqldrv.Statement
	for _, s := range schemas {
		batch, err := c.compiler.CreateTable(s)
		if err != nil {
			return err
		}
		stmts = append(stmts, batch...)
	}
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := tx.Exec(ctx, stmt.Query, stmt.Args, nil); err != nil {
			return rollback(tx, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if c.cache != nil {
		for _, s := range schemas {
			if err := c.cache.Invalidate(ctx, s.Table); err != nil {
				c.log.LogAttrs(ctx, slog.LevelWarn, "schema cache invalidation failed",
					slog.String("table", s.Table),
					slog.Any("error", err),
				)
			}
		}
	}
	return nil
}

// evalQuery runs the read policy over the raw params. Rules may add
// filters to params.Where; a Deny decision is returned unchanged.
func (c *Client) evalQuery(ctx context.Context, table string, op policy.Op, params *FindParams) error {
	if c.policy == nil {
		return nil
	}
	if params.Where == nil {
		params.Where = make(map[string]any)
	}
	return c.policy.EvalQuery(ctx, &policy.Query{Table: table, Op: op, Where: params.Where})
}

// evalMutation runs the write policy over the mutation.
func (c *Client) evalMutation(ctx context.Context, m *policy.Mutation) error {
	if c.policy == nil {
		return nil
	}
	return c.policy.EvalMutation(ctx, m)
}

// rollback discards the transaction and keeps err as the primary failure.
func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		return fmt.Errorf("%w: rolling back: %v", err, rerr)
	}
	return err
}

// buildFindRequest runs the full validation pipeline over the raw params
// and assembles the typed request. Invalid input comes back as a
// *ValidationError; loader and catalog failures as a *QueryError.
func (c *Client) buildFindRequest(ctx context.Context, table string, params FindParams, reqID string) (*querylanguage.FindRequest, error) {
	s, err := c.Schema(ctx, table)
	if err != nil {
		return nil, err
	}
	fr, err := c.validator.ValidateFields(ctx, s, params.Fields)
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
	}
	if !fr.Valid {
		return nil, NewValidationError(fr.Message)
	}
	rr, err := c.validator.ValidateRelations(ctx, s, params.Relations, fr.Relations)
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
	}
	if !rr.Valid {
		return nil, NewValidationError(rr.Message)
	}
	wr, err := c.validator.ValidateWhere(ctx, s, params.Where, rr.Relations)
	if err != nil {
		return nil, &QueryError{Table: table, Op: "find", RequestID: reqID, Err: err}
	}
	if !wr.Valid {
		return nil, NewValidationError(wr.Message)
	}
	sr := c.validator.ValidateSort(s, params.Sort)
	if !sr.Valid {
		return nil, NewValidationError(sr.Message)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = c.defaultLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	return &querylanguage.FindRequest{
		Schema:    s,
		Fields:    fr.Fields,
		Where:     wr.Where,
		Relations: wr.Relations,
		Sort:      sr.Sort,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// validateWrite checks a write record against the schema: every key must
// be a plain column of the table and every value must conform to its
// column. On create, required columns without a default must be present.
func (c *Client) validateWrite(s *schema.Schema, record map[string]any, create bool) error {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.Contains(key, ".") {
			return NewValidationError(fmt.Sprintf("field %q: writes cannot address related tables", key))
		}
		col, found := s.Column(key)
		if !found {
			return NewValidationError(fmt.Sprintf("unknown field %q on table %q", key, s.Table))
		}
		if err := schema.Validate(col, record[key]); err != nil {
			return NewValidationError(err.Error())
		}
	}
	if !create {
		return nil
	}
	for i := range s.Columns {
		col := &s.Columns[i]
		if !col.Required || col.PrimaryKey || col.Default != nil {
			continue
		}
		if _, present := record[col.Field]; !present {
			return NewValidationError(fmt.Sprintf("field %q is required", col.Field))
		}
	}
	return nil
}

// probeUniques checks every unique column present in the record for an
// existing row with the same value. A non-nil excludeID exempts the row
// being updated. The probe narrows the race window; the database
// constraint remains the authority and its violation is converted by
// constraintToValidation.
func (c *Client) probeUniques(ctx context.Context, s *schema.Schema, record map[string]any, excludeID any) error {
	for _, col := range s.UniqueColumns() {
		v, present := record[col.Field]
		if !present || v == nil {
			continue
		}
		stmt := c.compiler.UniqueProbe(s, col.Field, v, excludeID)
		n, err := c.queryCount(ctx, stmt)
		if err != nil {
			return &QueryError{Table: s.Table, Op: "unique-probe", RequestID: uuid.NewString(), Err: err}
		}
		if n > 0 {
			return NewValidationError(fmt.Sprintf("field %q: value already exists", col.Field))
		}
	}
	return nil
}

// constraintToValidation maps database constraint violations to
// user-facing validation errors. Non-constraint errors return nil.
func constraintToValidation(err error) *ValidationError {
	switch {
	case sqldrv.IsUniqueConstraintError(err):
		return NewValidationError("a record with the same unique value already exists")
	case sqldrv.IsForeignKeyConstraintError(err):
		return NewValidationError("the record references a related record that does not exist")
	default:
		return nil
	}
}

// execInsert runs a compiled INSERT and returns the new primary key. On
// dialects returning the key inline the statement executes as a query;
// otherwise the driver's LastInsertId is consulted, falling back to an
// explicit id in the record.
func (c *Client) execInsert(ctx context.Context, s *schema.Schema, record map[string]any, stmt sqldrv.Statement) (any, error) {
	if stmt.Returning {
		rows := &sqldrv.Rows{}
		if err := c.drv.Query(ctx, stmt.Query, stmt.Args, rows); err != nil {
			return nil, err
		}
		return scanID(rows)
	}
	var res sql.Result
	if err := c.drv.Exec(ctx, stmt.Query, stmt.Args, &res); err != nil {
		return nil, err
	}
	if id, present := record[s.PrimaryKey]; present {
		return id, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, nil
	}
	return id, nil
}

func (c *Client) exec(ctx context.Context, stmt sqldrv.Statement) (int64, error) {
	var res sql.Result
	if err := c.drv.Exec(ctx, stmt.Query, stmt.Args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Client) queryRows(ctx context.Context, stmt sqldrv.Statement) ([]map[string]any, error) {
	rows := &sqldrv.Rows{}
	if err := c.drv.Query(ctx, stmt.Query, stmt.Args, rows); err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (c *Client) queryCount(ctx context.Context, stmt sqldrv.Statement) (int, error) {
	rows := &sqldrv.Rows{}
	if err := c.drv.Query(ctx, stmt.Query, stmt.Args, rows); err != nil {
		return 0, err
	}
	return scanCount(rows)
}
