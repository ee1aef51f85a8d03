// Package book resolves bibliographic metadata for a single identifier by
// querying external sources in a fixed priority order.
package book

import (
	"regexp"
	"strconv"
)

// Record is the canonical resolved record shape shared by the batch and
// single-record paths. Zero values mean "unset"; every field except ISBN is
// optional.
type Record struct {
	ISBN        string
	Title       string
	Author      string
	Year        int
	Edition     string
	Publisher   string
	Description string
}

// Overlay returns base with every set field of over taking precedence.
// Used to apply caller-supplied hints on top of a resolved record before
// storage.
func Overlay(base, over Record) Record {
	out := base
	if over.ISBN != "" {
		out.ISBN = over.ISBN
	}
	if over.Title != "" {
		out.Title = over.Title
	}
	if over.Author != "" {
		out.Author = over.Author
	}
	if over.Year != 0 {
		out.Year = over.Year
	}
	if over.Edition != "" {
		out.Edition = over.Edition
	}
	if over.Publisher != "" {
		out.Publisher = over.Publisher
	}
	if over.Description != "" {
		out.Description = over.Description
	}
	return out
}

// yearPattern accepts 1000-1999 and 2000-2099; anything outside that window
// is noise, not a publication year.
var yearPattern = regexp.MustCompile(`\b(1\d{3}|20\d{2})\b`)

// ParseYear extracts a publication year from a free-form date string
// ("Cambridge: 1998", "1991-05-01"). Returns 0 when no plausible year is
// present.
func ParseYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return y
}
