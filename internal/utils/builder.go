package querybuilder

import (
	"fmt"
	"strings"
)

// QueryBuilder assembles SQL with '?' placeholders. Callers rebind them for
// their driver (sqlx.Rebind) before executing.
type QueryBuilder interface {
	Select(cols ...string) QueryBuilder
	From(table string) QueryBuilder
	Into(table string) QueryBuilder
	Where(clause string, args ...interface{}) QueryBuilder
	And(clause string, args ...interface{}) QueryBuilder

	OrderBy(col string, asc bool) QueryBuilder
	Limit(n int) QueryBuilder

	Insert(cols ...string) QueryBuilder
	Values(values ...interface{}) QueryBuilder
	// OnConflict without SetExclude builds ON CONFLICT ... DO NOTHING
	OnConflict(cols ...string) QueryBuilder
	SetExclude(cols ...string) QueryBuilder

	Delete(table string) QueryBuilder

	// Build returns the statement and its arguments. An invalid insert
	// (no rows, or a row whose width differs from the column list) builds "".
	Build() (string, []interface{})
}

type queryBuilder struct {
	schema      string
	table       string
	cols        []string
	conditions  []Condition
	rows        [][]interface{}
	orderBy     []string
	limit       int
	isDelete    bool
	onConflict  []string
	excludeCols []string
}

func NewQueryBuilder(schema string) QueryBuilder {
	return &queryBuilder{
		schema: schema,
	}
}

func (q *queryBuilder) qualified() string {
	if q.schema == "" {
		return q.table
	}
	return q.schema + "." + q.table
}

func (q *queryBuilder) Select(cols ...string) QueryBuilder {
	q.cols = append(q.cols, cols...)
	return q
}

func (q *queryBuilder) From(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Into(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Insert(cols ...string) QueryBuilder {
	q.cols = cols
	return q
}

// Values appends one row
func (q *queryBuilder) Values(values ...interface{}) QueryBuilder {
	q.rows = append(q.rows, values)
	return q
}

func (q *queryBuilder) OnConflict(cols ...string) QueryBuilder {
	q.onConflict = cols
	return q
}

// SetExclude updates the given columns from the conflicting row
func (q *queryBuilder) SetExclude(cols ...string) QueryBuilder {
	q.excludeCols = cols
	return q
}

func (q *queryBuilder) Delete(table string) QueryBuilder {
	q.table = table
	q.isDelete = true
	return q
}

func (q *queryBuilder) Where(clause string, args ...interface{}) QueryBuilder {
	return q.And(clause, args...)
}

func (q *queryBuilder) And(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, Condition{
		clause: clause,
		args:   args,
	})
	return q
}

func (q *queryBuilder) OrderBy(col string, asc bool) QueryBuilder {
	direction := "ASC"
	if !asc {
		direction = "DESC"
	}
	q.orderBy = append(q.orderBy, fmt.Sprintf("%s %s", col, direction))
	return q
}

func (q *queryBuilder) Limit(n int) QueryBuilder {
	q.limit = n
	return q
}

func buildCondition(conditions []Condition) (string, []interface{}) {
	parts := make([]string, 0, len(conditions))
	args := make([]interface{}, 0)

	for _, cond := range conditions {
		parts = append(parts, cond.clause)
		args = append(args, cond.args...)
	}

	return strings.Join(parts, " AND "), args
}

func (q *queryBuilder) Build() (string, []interface{}) {
	switch {
	case len(q.rows) > 0:
		return q.buildInsert()
	case q.isDelete:
		return q.buildDelete()
	default:
		return q.buildSelect()
	}
}

func (q *queryBuilder) buildWhere() (string, []interface{}) {
	if len(q.conditions) == 0 {
		return "", nil
	}
	condition, args := buildCondition(q.conditions)
	return " WHERE " + condition, args
}

func (q *queryBuilder) buildSelect() (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(q.cols, ", "), q.qualified())

	where, args := q.buildWhere()
	query += where

	if len(q.orderBy) > 0 {
		query += fmt.Sprintf(" ORDER BY %s", strings.Join(q.orderBy, ", "))
	}

	if q.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.limit)
	}

	return query, args
}

func (q *queryBuilder) buildInsert() (string, []interface{}) {
	width := len(q.cols)
	if width == 0 {
		return "", nil
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
	tuples := make([]string, 0, len(q.rows))
	args := make([]interface{}, 0, len(q.rows)*width)

	for _, row := range q.rows {
		if len(row) != width {
			return "", nil
		}
		tuples = append(tuples, placeholders)
		args = append(args, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", q.qualified(), strings.Join(q.cols, ", "), strings.Join(tuples, ", "))

	if len(q.onConflict) > 0 {
		query += fmt.Sprintf(" ON CONFLICT (%s)", strings.Join(q.onConflict, ", "))
		if len(q.excludeCols) == 0 {
			return query + " DO NOTHING", args
		}

		sets := make([]string, len(q.excludeCols))
		for i, col := range q.excludeCols {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
		}
		query += " DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return query, args
}

func (q *queryBuilder) buildDelete() (string, []interface{}) {
	where, args := q.buildWhere()
	return fmt.Sprintf("DELETE FROM %s%s", q.qualified(), where), args
}
