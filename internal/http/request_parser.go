// Package http serves the dashboard page and its JSON API.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON or form-encoded.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gofinances/internal/core"
	"gofinances/internal/services"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
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
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form). Nested
// JSON objects are addressed with a dot, e.g. "category.name".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		var v interface{} = p.jsonData
		for _, part := range strings.Split(key, ".") {
			m, ok := v.(map[string]interface{})
			if !ok {
				return ""
			}
			v = m[part]
		}
		return sanitizeInput(stringValue(v))
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

var errInvalidDateParam = errors.New("invalid date: use YYYY-MM-DD or RFC 3339")

// ParseNewTransaction extracts the fields of a new transaction. Amount
// validation is left to the service so that every entry point parses
// amounts the same way.
func ParseNewTransaction(p *RequestBodyParser) (services.NewTransaction, error) {
	in := services.NewTransaction{
		Type:   core.TransactionType(p.Get("type")),
		Title:  p.Get("title"),
		Amount: p.Get("amount"),
		Category: core.Category{
			Name: p.Get("category.name"),
			Icon: p.Get("category.icon"),
		},
	}
	if !p.IsJSON() {
		in.Category.Name = p.Get("category")
		in.Category.Icon = p.Get("icon")
	}

	if v := p.Get("date"); v != "" {
		d, err := parseDateParam(v)
		if err != nil {
			return services.NewTransaction{}, fmt.Errorf("%w: %q", errInvalidDateParam, v)
		}
		in.Date = d
	}
	return in, nil
}

func parseDateParam(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
