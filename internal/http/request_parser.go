// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Every dashboard request carries its state explicitly in the query string,
// so the helpers here turn those parameters into typed values.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"analizador/internal/aggregate"
	"analizador/internal/core"
)

// Preview table names, as used in ?table=.
const (
	TableEntries  = "entradas"
	TableFamilies = "familias"
	TableJoined   = "combinados"
)

// PreviewRows is how many rows the preview tabs show.
const PreviewRows = 100

// Chart image bounds.
const (
	minChartSide = 200
	maxChartSide = 4096
)

// ChartParams holds the parsed ?file=&mode=&w=&h= parameters.
type ChartParams struct {
	File   string
	Mode   aggregate.Mode
	Width  int
	Height int
}

// ParseFile returns the sanitized ?file= value; empty selects the default source.
func ParseFile(query url.Values) string {
	return sanitizeInput(query.Get("file"))
}

// ParseChartParams extracts chart parameters. A missing mode selects the
// first chart; an unknown one is an error wrapping core.ErrUnknownMode.
// Width and height default to the renderer's size and are clamped.
func ParseChartParams(query url.Values) (ChartParams, error) {
	p := ChartParams{
		File:   ParseFile(query),
		Mode:   aggregate.QualityByMonth,
		Width:  parseDimension(query.Get("w")),
		Height: parseDimension(query.Get("h")),
	}
	if v := sanitizeInput(query.Get("mode")); v != "" {
		m, err := aggregate.ParseMode(v)
		if err != nil {
			return p, err
		}
		p.Mode = m
	}
	return p, nil
}

// chartQuery encodes p back into query parameters.
func chartQuery(p ChartParams) string {
	q := url.Values{}
	if p.File != "" {
		q.Set("file", p.File)
	}
	q.Set("mode", p.Mode.Slug())
	if p.Width > 0 {
		q.Set("w", strconv.Itoa(p.Width))
	}
	if p.Height > 0 {
		q.Set("h", strconv.Itoa(p.Height))
	}
	return q.Encode()
}

// parseDimension returns 0 (renderer default) for missing or invalid input.
func parseDimension(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return max(minChartSide, min(n, maxChartSide))
}

// ParseTable returns the requested preview table, defaulting to the joined one.
func ParseTable(query url.Values) string {
	switch strings.ToLower(sanitizeInput(query.Get("table"))) {
	case TableEntries:
		return TableEntries
	case TableFamilies:
		return TableFamilies
	default:
		return TableJoined
	}
}

// pickTable selects the named table of ds.
func pickTable(ds *core.Dataset, name string) *core.Table {
	switch name {
	case TableEntries:
		return ds.Entries
	case TableFamilies:
		return ds.Families
	default:
		return ds.Joined
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET accepts GET and HEAD.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
