// Package batch partitions catalog name lists into request-sized batches for
// the sales history endpoint.
package batch

import (
	"net/url"
	"strings"
)

// Packing limits. The encoded-length cap covers the percent-encoded names
// plus one separator each and a fixed allowance for the query prefix.
const (
	DefaultMaxEncodedLen = 7000
	DefaultMaxItems      = 100

	// baseOverhead reserves room for the non-name part of the query string.
	baseOverhead = 64

	// maxNameLen drops pathological names before packing.
	maxNameLen = 150
)

// Planner packs normalized names into batches bounded by an encoded-length
// budget and an item-count budget.
type Planner struct {
	maxEncodedLen int
	maxItems      int
}

// NewPlanner creates a planner with the given caps. Non-positive caps fall
// back to the defaults.
func NewPlanner(maxEncodedLen, maxItems int) *Planner {
	if maxEncodedLen <= 0 {
		maxEncodedLen = DefaultMaxEncodedLen
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Planner{maxEncodedLen: maxEncodedLen, maxItems: maxItems}
}

// Normalize trims a raw name and collapses internal whitespace. It is the
// single normalization used for every map key in the system.
func Normalize(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Plan normalizes and filters the input, then greedily packs it into batches.
// Output batches preserve input order; their concatenation equals the
// filtered input.
func (p *Planner) Plan(names []string) [][]string {
	var batches [][]string
	var current []string
	length := baseOverhead

	for _, raw := range names {
		name := Normalize(raw)
		if name == "" || len(name) >= maxNameLen {
			continue
		}

		cost := len(url.QueryEscape(name)) + 1
		if len(current) > 0 && (length+cost > p.maxEncodedLen || len(current) >= p.maxItems) {
			batches = append(batches, current)
			current = nil
			length = baseOverhead
		}

		current = append(current, name)
		length += cost
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
