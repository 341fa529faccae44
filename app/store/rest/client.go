// Package rest talks to a hosted PostgREST table API (the Supabase REST
// endpoint) using a project URL and an anonymous access key.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/supabase-community/postgrest-go"

	"taskboard/app/models"
	"taskboard/app/store"
)

const schema = "public"

// Client is a store.Backend over the table API.
type Client struct {
	api *postgrest.Client
}

var _ store.Backend = (*Client)(nil)

// New returns a Client for the service at serviceURL.
func New(serviceURL, anonKey string) (*Client, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("rest: service URL is required")
	}
	if anonKey == "" {
		return nil, fmt.Errorf("rest: anonymous key is required")
	}
	if _, err := url.ParseRequestURI(serviceURL); err != nil {
		return nil, fmt.Errorf("rest: invalid service URL: %w", err)
	}
	api := postgrest.NewClient(strings.TrimRight(serviceURL, "/")+"/rest/v1", schema, map[string]string{
		"apikey":        anonKey,
		"Authorization": "Bearer " + anonKey,
	})
	if api.ClientError != nil {
		return nil, fmt.Errorf("rest: %w", api.ClientError)
	}
	return &Client{api: api}, nil
}

// Select reads rows of q.Table.
func (c *Client) Select(ctx context.Context, q store.Query) ([]models.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, store.Wrap("select", q.Table, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("select", q.Table, err)
	}

	fb := c.api.From(string(q.Table)).Select("*", "", false)
	if q.Filter != nil {
		fb = filter(fb, *q.Filter)
	}
	if q.OrderBy != "" {
		fb = fb.Order(string(q.OrderBy), &postgrest.OrderOpts{Ascending: !q.Descending})
	}
	body, _, err := fb.Execute()
	if err != nil {
		return nil, store.Wrap("select", q.Table, apiError(err))
	}
	rows, err := decodeRows(body)
	return rows, store.Wrap("select", q.Table, err)
}

// Insert stores rows and returns their stored representation.
func (c *Client) Insert(ctx context.Context, table models.Table, rows []models.Row) ([]models.Row, error) {
	values := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if err := store.ValidateRow(table, row); err != nil {
			return nil, store.Wrap("insert", table, err)
		}
		values = append(values, fromRow(row))
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("insert", table, err)
	}

	body, _, err := c.api.From(string(table)).Insert(values, false, "", "representation", "").Execute()
	if err != nil {
		return nil, store.Wrap("insert", table, apiError(err))
	}
	out, err := decodeRows(body)
	return out, store.Wrap("insert", table, err)
}

// Update sets values on the rows matched by f.
func (c *Client) Update(ctx context.Context, table models.Table, values models.Row, f store.Filter) error {
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("update", table, err)
	}
	if err := store.ValidateRow(table, values); err != nil {
		return store.Wrap("update", table, err)
	}
	if err := ctx.Err(); err != nil {
		return store.Wrap("update", table, err)
	}

	fb := c.api.From(string(table)).Update(fromRow(values), "minimal", "")
	_, _, err := filter(fb, f).Execute()
	return store.Wrap("update", table, apiError(err))
}

// Delete removes the rows matched by f.
func (c *Client) Delete(ctx context.Context, table models.Table, f store.Filter) error {
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("delete", table, err)
	}
	if err := ctx.Err(); err != nil {
		return store.Wrap("delete", table, err)
	}

	fb := c.api.From(string(table)).Delete("minimal", "")
	_, _, err := filter(fb, f).Execute()
	return store.Wrap("delete", table, apiError(err))
}

// Close is a no-op; the client holds no pooled resources of its own.
func (c *Client) Close(context.Context) error {
	return nil
}

// filter applies f as eq for one value and in for several.
func filter(fb *postgrest.FilterBuilder, f store.Filter) *postgrest.FilterBuilder {
	if f.IsEq() {
		return fb.Eq(string(f.Column), f.Values[0])
	}
	return fb.In(string(f.Column), f.Values)
}

// errorText matches the "(code) message" form the client reports API errors in.
var errorText = regexp.MustCompile(`^\(([^)]*)\) (.*)$`)

// apiError keeps the service's message and maps constraint codes onto the
// store sentinels.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	m := errorText.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, msg := m[1], m[2]
	cause := fmt.Errorf("code %s: %w", code, err)
	switch code {
	case "23503":
		cause = fmt.Errorf("%w: %w", store.ErrReference, err)
	case "23505":
		cause = fmt.Errorf("%w: %w", store.ErrDuplicateKey, err)
	}
	return &store.Error{Message: msg, Err: cause}
}

func decodeRows(body []byte) ([]models.Row, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out := make([]models.Row, len(raw))
	for i, m := range raw {
		row := make(models.Row, len(m))
		for k, v := range m {
			row[models.Column(k)] = v
		}
		out[i] = row
	}
	return out, nil
}

func fromRow(row models.Row) map[string]any {
	out := make(map[string]any, len(row))
	for c, v := range row {
		out[string(c)] = v
	}
	return out
}
