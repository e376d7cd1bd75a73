package remote

import (
	"fmt"
	"net/url"
	"strconv"
)

// Option configures a resource query.
type Option func(*queryOptions)

type filter struct {
	column string
	value  string
}

type queryOptions struct {
	filters []filter
	order   string
	desc    bool
	limit   int
	single  bool
	maybe   bool
}

// Eq filters rows where column equals value.
func Eq(column string, value any) Option {
	return func(o *queryOptions) {
		o.filters = append(o.filters, filter{column: column, value: fmt.Sprint(value)})
	}
}

// Order sorts results by column, descending when desc is true.
func Order(column string, desc bool) Option {
	return func(o *queryOptions) {
		o.order = column
		o.desc = desc
	}
}

// Limit caps the number of returned rows.
func Limit(n int) Option {
	return func(o *queryOptions) {
		o.limit = n
	}
}

// Single expects exactly one row; zero rows map to ErrNotFound.
func Single() Option {
	return func(o *queryOptions) {
		o.single = true
	}
}

// MaybeSingle expects at most one row; zero rows leave dest untouched
// and return no error.
func MaybeSingle() Option {
	return func(o *queryOptions) {
		o.single = true
		o.maybe = true
	}
}

func buildOptions(opts []Option) queryOptions {
	var q queryOptions
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// encode renders the query in the store's resource syntax:
// column=eq.value filters, order=column.desc, limit=n.
func (o *queryOptions) encode() url.Values {
	v := url.Values{}
	for _, f := range o.filters {
		v.Set(f.column, "eq."+f.value)
	}
	if o.order != "" {
		dir := "asc"
		if o.desc {
			dir = "desc"
		}
		v.Set("order", o.order+"."+dir)
	}
	if o.limit > 0 {
		v.Set("limit", strconv.Itoa(o.limit))
	}
	return v
}
