package baas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Query builds a filtered table read or update. Filters are rendered as
// PostgREST operators (col=eq.value, col=gte.value, ...).
type Query struct {
	client  *Client
	table   string
	selects string
	filters []filter
	order   string
	limit   int
}

type filter struct {
	column string
	op     string
	value  string
}

func (q *Query) Select(columns string) *Query {
	q.selects = columns
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	return q.filter(column, "eq", value)
}

func (q *Query) Gte(column string, value any) *Query {
	return q.filter(column, "gte", value)
}

func (q *Query) Lte(column string, value any) *Query {
	return q.filter(column, "lte", value)
}

func (q *Query) filter(column, op string, value any) *Query {
	q.filters = append(q.filters, filter{column: column, op: op, value: fmt.Sprintf("%v", value)})
	return q
}

// Order takes a comma-separated column list, e.g. "start_date,id".
func (q *Query) Order(columns string) *Query {
	q.order = columns
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Get runs the query and decodes the row array into dest.
func (q *Query) Get(ctx context.Context, dest any) error {
	raw, err := q.client.do(ctx, http.MethodGet, "/rest/v1/"+q.table, q.params(), nil, "")
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Single runs the query expecting exactly one row and decodes it into dest.
func (q *Query) Single(ctx context.Context, dest any) error {
	q.limit = 1
	raw, err := q.client.do(ctx, http.MethodGet, "/rest/v1/"+q.table, q.params(), nil, "")
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows in %s", q.table)
	}
	return json.Unmarshal(rows[0], dest)
}

// Update patches all rows matched by the filters and decodes the returned
// representation into dest when dest is non-nil.
func (q *Query) Update(ctx context.Context, patch any, dest any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	raw, err := q.client.do(ctx, http.MethodPatch, "/rest/v1/"+q.table, q.params(), body, "return=representation")
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// params renders the query as PostgREST parameters. Filters use Add, not Set:
// a range over one column is two repeated params (col=gte.a&col=lte.b) and
// both must survive.
func (q *Query) params() url.Values {
	params := url.Values{}
	if q.selects != "" {
		params.Set("select", q.selects)
	}
	for _, f := range q.filters {
		params.Add(f.column, f.op+"."+f.value)
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	return params
}
