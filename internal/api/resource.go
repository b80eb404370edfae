package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"fintrack/internal/core"
)

// Resource is one backend collection, e.g. /transactions.
type Resource[R any] struct {
	client *Client
	path   string
	fields []string
	idOf   func(R) core.ID
	setID  func(*R, core.ID)
}

// List fetches the whole collection in server order.
func (r *Resource[R]) List(ctx context.Context) ([]R, error) {
	data, err := r.client.do(ctx, http.MethodGet, r.path, nil)
	if err != nil {
		return nil, err
	}

	target := r.url()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &MalformedResponseError{URL: target, Reason: "empty body"}
	}
	if trimmed[0] != '[' {
		return nil, &MalformedResponseError{URL: target, Reason: "expected a JSON array"}
	}

	var items []R
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &MalformedResponseError{URL: target, Reason: "decode list", Err: err}
	}
	if items == nil {
		items = []R{}
	}
	return items, nil
}

// Create posts draft and returns the record the server stored. When the
// server acknowledges without echoing a record, draft is returned as is.
func (r *Resource[R]) Create(ctx context.Context, draft R) (R, error) {
	data, err := r.client.do(ctx, http.MethodPost, r.path, draft)
	if err != nil {
		var zero R
		return zero, err
	}
	return r.decodeRecord(data, r.url(), draft)
}

// Update sends fields for the record id and returns the stored version.
func (r *Resource[R]) Update(ctx context.Context, id core.ID, fields R) (R, error) {
	r.setID(&fields, id)
	data, err := r.client.do(ctx, http.MethodPut, r.itemPath(id), fields)
	if err != nil {
		var zero R
		return zero, err
	}

	rec, err := r.decodeRecord(data, r.url()+"/"+url.PathEscape(id.String()), fields)
	if err != nil {
		return rec, err
	}
	if r.idOf(rec) == "" {
		r.setID(&rec, id)
	}
	return rec, nil
}

// Delete removes the record id. Any 2xx status is success.
func (r *Resource[R]) Delete(ctx context.Context, id core.ID) error {
	_, err := r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil)
	return err
}

func (r *Resource[R]) itemPath(id core.ID) string {
	return r.path + "/" + url.PathEscape(id.String())
}

func (r *Resource[R]) url() string {
	return r.client.base.JoinPath(r.path).String()
}

// decodeRecord reads a single record from a write response. Bodies that are
// empty or objects without any record field fall back to sent.
func (r *Resource[R]) decodeRecord(data []byte, target string, sent R) (R, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return sent, nil
	}
	if trimmed[0] != '{' {
		var zero R
		return zero, &MalformedResponseError{URL: target, Reason: "expected a JSON object"}
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		var zero R
		return zero, &MalformedResponseError{URL: target, Reason: "decode record", Err: err}
	}
	if !r.hasRecordField(keys) {
		return sent, nil
	}

	var rec R
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		var zero R
		return zero, &MalformedResponseError{URL: target, Reason: "decode record", Err: err}
	}
	return rec, nil
}

func (r *Resource[R]) hasRecordField(keys map[string]json.RawMessage) bool {
	for _, f := range r.fields {
		if _, ok := keys[f]; ok {
			return true
		}
	}
	return false
}
