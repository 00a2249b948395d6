// Package table provides read access to the persisted title table that the
// search engine walks, plus the writers used to build it.
//
// A table maps an exact-byte title to an Entry. An Entry is either a page
// with an ordered list of outbound link titles, or a redirect to another
// title. Several storage backends are available (in-memory B-Tree,
// append-only file, SQLite and Badger); all of them expose the same
// read-only Store interface and are safe for concurrent lookups.
package table

import (
	"strings"
)

// Delimiter separates link titles inside a persisted payload. It never
// appears inside a title.
const Delimiter = "<|>"

// Entry is the value stored for a title.
type Entry struct {
	// Redirect marks the title as an alias of Target.
	Redirect bool

	// Target is the redirect destination. Empty when Redirect is true means
	// the destination was excluded by namespace policy and must not be followed.
	Target string

	// Links holds the outbound link titles of a page, in document order.
	Links []string
}

// Page builds a non-redirect entry.
func Page(links ...string) Entry {
	return Entry{Links: links}
}

// RedirectTo builds a redirect entry. An empty target marks a filtered redirect.
func RedirectTo(target string) Entry {
	return Entry{Redirect: true, Target: target}
}

// Filtered reports whether e is a redirect into an excluded namespace.
func (e Entry) Filtered() bool {
	return e.Redirect && e.Target == ""
}

// Payload returns the persisted payload string for e.
func (e Entry) Payload() string {
	if e.Redirect {
		return e.Target
	}
	return strings.Join(e.Links, Delimiter)
}

// ParseEntry decodes a persisted (is_redirect, payload) pair.
func ParseEntry(isRedirect bool, payload string) Entry {
	if isRedirect {
		return Entry{Redirect: true, Target: payload}
	}
	if payload == "" {
		return Entry{}
	}
	return Entry{Links: strings.Split(payload, Delimiter)}
}

// record is the compact form kept by in-memory and badger backends; links
// are split lazily on lookup.
type record struct {
	Redirect bool   `msgpack:"r"`
	Payload  string `msgpack:"p"`
}

func toRecord(e Entry) record {
	return record{Redirect: e.Redirect, Payload: e.Payload()}
}

func (r record) entry() Entry {
	return ParseEntry(r.Redirect, r.Payload)
}
