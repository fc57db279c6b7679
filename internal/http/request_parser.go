// Package http provides the HTTP server and handler implementations.
//
// This file implements utilities for parsing HTTP request bodies and query
// strings into domain inputs.

package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

// Paging limits for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	if r.Body != nil {
		p.body, p.err = io.ReadAll(r.Body)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data. JSON numbers are
// kept as their literal text so amounts are never routed through float64.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.IsJSON() || trimmed[0] == '{' || trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var data map[string]any
		if err := dec.Decode(&data); err != nil {
			p.err = &requestError{message: "Invalid JSON body", cause: err}
			return p.err
		}
		if dec.More() {
			p.err = &requestError{message: "Invalid JSON body"}
			return p.err
		}
		if data == nil {
			data = map[string]any{}
		}
		p.jsonData = data
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = &requestError{message: "Invalid form body", cause: err}
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// TransactionInput collects the transaction fields of the body.
func (p *RequestBodyParser) TransactionInput() core.TransactionInput {
	return core.TransactionInput{
		Type:        p.Get("type"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
	}
}

// IsJSON reports whether the declared content type is JSON.
func (p *RequestBodyParser) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(p.contentType)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

// parseTransactionBody reads r's body into a transaction input.
func parseTransactionBody(r *http.Request) (core.TransactionInput, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.TransactionInput{}, err
	}
	return p.TransactionInput(), nil
}

// stringValue converts a decoded JSON value to string. Objects, arrays and
// null become "", which validation then reports as missing.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput strips control characters other than tab, LF and CR.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// ListQuery is a validated list request.
type ListQuery struct {
	Filter core.TransactionFilter
	Limit  int
	Offset int
}

// ParseListQuery validates the filter and paging parameters of a list
// request. A date-only endDate covers that whole day. limit above MaxLimit is
// capped rather than rejected.
func ParseListQuery(q url.Values) (ListQuery, error) {
	out := ListQuery{Limit: DefaultLimit}
	var verr core.ValidationError

	if typ, ok, err := parseTypeParam(q); err != nil {
		verr.Add("type", core.MsgInvalidType, typ.String())
	} else if ok {
		out.Filter.Type = typ
	}

	out.Filter.Category = strings.TrimSpace(q.Get("category"))

	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		t, _, err := core.ParseDate(v)
		if err != nil {
			verr.Add("startDate", core.MsgInvalidDate, v)
		} else {
			out.Filter.StartDate = &t
		}
	}

	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		t, dateOnly, err := core.ParseDate(v)
		if err != nil {
			verr.Add("endDate", core.MsgInvalidDate, v)
		} else {
			if dateOnly {
				t = t.Add(24*time.Hour - time.Millisecond)
			}
			out.Filter.EndDate = &t
		}
	}

	if s, e := out.Filter.StartDate, out.Filter.EndDate; s != nil && e != nil && s.After(*e) {
		verr.Add("startDate", "startDate must not be after endDate", "")
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			verr.Add("limit", "Limit must be a positive integer", v)
		} else {
			out.Limit = min(n, MaxLimit)
		}
	}

	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			verr.Add("offset", "Offset must be a non-negative integer", v)
		} else {
			out.Offset = n
		}
	}

	if err := verr.Err(); err != nil {
		return ListQuery{}, err
	}
	return out, nil
}

// parseTypeParam reads the optional type query parameter. ok is false when
// the parameter is absent.
func parseTypeParam(q url.Values) (typ core.TransactionType, ok bool, err error) {
	v := strings.TrimSpace(q.Get("type"))
	if v == "" {
		return "", false, nil
	}
	typ = core.TransactionType(v)
	if !typ.IsValid() {
		return typ, false, &core.ValidationError{Fields: []core.FieldError{{Field: "type", Message: core.MsgInvalidType, Value: v}}}
	}
	return typ, true, nil
}
