package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

// filterValue renders v as a PostgREST operator expression.
func filterValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "is.null"
	case string:
		return "eq." + x
	case bool:
		return "eq." + strconv.FormatBool(x)
	case time.Time:
		return "eq." + x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return "eq." + x.String()
	default:
		return fmt.Sprintf("eq.%v", x)
	}
}

// encodeQuery renders q as PostgREST query parameters.
func encodeQuery(q backend.Query, withSelect bool) url.Values {
	v := url.Values{}
	if withSelect {
		v.Set("select", "*")
	}
	for _, f := range q.Filters {
		v.Add(f.Column, filterValue(f.Value))
	}
	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "desc"
			if o.Ascending {
				dir = "asc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Select reads rows of table into dst. Reads are retried while the backend
// is unavailable.
func (c *Client) Select(ctx context.Context, table string, q backend.Query, dst any) error {
	if err := q.Validate(table); err != nil {
		return err
	}
	token := c.bearer(ctx)

	return c.retry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, restPath+"/"+table, encodeQuery(q, true), nil, token)
		if err != nil {
			return err
		}
		if q.Single {
			req.Header.Set("Accept", mediaObject)
		}
		return c.do(req, dst)
	})
}

// Insert posts row to table. With dst set, the stored row is requested back
// and decoded into it.
func (c *Client) Insert(ctx context.Context, table string, row any, dst any) error {
	if err := (backend.Query{}).Validate(table); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, restPath+"/"+table, nil, row, c.bearer(ctx))
	if err != nil {
		return err
	}

	if dst == nil {
		req.Header.Set(headerPrefer, "return=minimal")
		return c.do(req, nil)
	}

	req.Header.Set(headerPrefer, "return=representation")
	var rows []json.RawMessage
	if err := c.do(req, &rows); err != nil {
		return err
	}
	return backend.DecodeRows(rows, backend.Query{Single: true}, dst)
}

// Update applies patch to the rows matched by q.
func (c *Client) Update(ctx context.Context, table string, q backend.Query, patch any) error {
	if err := q.Validate(table); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPatch, restPath+"/"+table, encodeQuery(q, false), patch, c.bearer(ctx))
	if err != nil {
		return err
	}
	req.Header.Set(headerPrefer, "return=minimal")
	return c.do(req, nil)
}

// Delete removes the rows matched by q.
func (c *Client) Delete(ctx context.Context, table string, q backend.Query) error {
	if err := q.Validate(table); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodDelete, restPath+"/"+table, encodeQuery(q, false), nil, c.bearer(ctx))
	if err != nil {
		return err
	}
	req.Header.Set(headerPrefer, "return=minimal")
	return c.do(req, nil)
}
