package filter

import (
	"strings"

	"github.com/iwvelando/scheme-engine/pkg/records"
)

// Option is one entry of a checkbox filter list.
type Option struct {
	Label string      `json:"label"`
	Value interface{} `json:"value"`
}

// OptionSet is a possibly truncated option list.
type OptionSet struct {
	Options []Option `json:"options"`
	// Truncated is set when only a sample of the collection was scanned; the
	// caller should ask for a search term to narrow further.
	Truncated bool `json:"truncated"`
	Scanned   int  `json:"scanned"`
}

// UniqueOptions returns the distinct non-falsy values of field across recs
// in first-seen order.
func UniqueOptions(recs []records.Record, field string) []Option {
	return collect(recs, field, "")
}

// CappedOptions is UniqueOptions bounded for large collections. Without a
// search term only the first limit records are scanned and the result is
// marked truncated when the collection is larger. With a search term every
// record is scanned but only labels containing the term are kept.
func CappedOptions(recs []records.Record, field string, limit int, search string) OptionSet {
	search = strings.TrimSpace(search)
	if search != "" || limit <= 0 || len(recs) <= limit {
		return OptionSet{Options: collect(recs, field, search), Scanned: len(recs)}
	}
	return OptionSet{
		Options:   collect(recs[:limit], field, ""),
		Truncated: true,
		Scanned:   limit,
	}
}

// SearchOptions keeps the options whose label contains search,
// case-insensitively. An empty search keeps everything.
func SearchOptions(options []Option, search string) []Option {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return options
	}
	out := make([]Option, 0, len(options))
	for _, o := range options {
		if strings.Contains(strings.ToLower(o.Label), needle) {
			out = append(out, o)
		}
	}
	return out
}

func collect(recs []records.Record, field, search string) []Option {
	needle := strings.ToLower(search)
	seen := make(map[string]struct{})
	var out []Option
	for _, r := range recs {
		v, ok := r.Get(field)
		if !ok || records.IsFalsy(v) {
			continue
		}
		label := records.ValueString(v)
		if _, dup := seen[label]; dup {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(label), needle) {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, Option{Label: label, Value: v})
	}
	return out
}
