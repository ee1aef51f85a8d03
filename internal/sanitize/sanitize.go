// Package sanitize cleans description text fetched from external sources:
// encoding repair, markup stripping, whitespace normalization and
// placeholder rejection.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

const (
	// minDescriptionLen is the shortest description worth keeping.
	minDescriptionLen = 5

	// unavailableMarker flags a known placeholder some catalogs return
	// instead of real prose.
	unavailableMarker = "description not available"
)

// CleanDescription repairs mis-encoded text, strips HTML markup, collapses
// whitespace runs and rejects placeholder or too-short content. Returns ""
// when nothing usable remains. Malformed markup degrades to best-effort
// plain text; this function never fails.
func CleanDescription(text string) string {
	if text == "" {
		return ""
	}

	text = repairMojibake(text)
	text = stripHTML(text)
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) < minDescriptionLen {
		return ""
	}
	if strings.Contains(strings.ToLower(text), unavailableMarker) {
		return ""
	}

	return text
}

// mojibakeMarkers are byte sequences that appear when UTF-8 text has been
// decoded as Windows-1252 and re-encoded ("â€™" for a right single quote,
// "Ã©" for é, and so on). Ordinary prose essentially never contains them.
var mojibakeMarkers = []string{"Ã", "Â", "â€", "â„"}

// repairMojibake undoes a lossy UTF-8 -> Windows-1252 -> UTF-8 round trip.
// The text is re-encoded to Windows-1252 bytes; when those bytes form valid
// UTF-8 the reinterpretation is kept. Damage from a double round trip is
// repaired by a second pass. Text that cannot be re-encoded is returned
// unchanged.
func repairMojibake(s string) string {
	enc := charmap.Windows1252.NewEncoder()
	for i := 0; i < 2; i++ {
		if !looksMangled(s) {
			return s
		}
		fixed, err := enc.String(s)
		if err != nil || fixed == s || !utf8.ValidString(fixed) {
			return s
		}
		s = fixed
	}
	return s
}

func looksMangled(s string) bool {
	for _, m := range mojibakeMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// stripHTML retains only the visible text of a markup fragment. Entities
// are decoded, script and style bodies are dropped, and block-level tags
// become spaces so adjoining paragraphs do not run together.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	tok := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0

	for {
		switch tok.Next() {
		case html.ErrorToken:
			// io.EOF on well-formed input; anything else means the
			// fragment was malformed and we keep what we have.
			return b.String()
		case html.StartTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style":
				skipDepth++
			case "p", "br", "div", "li", "tr":
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if n := string(name); n == "br" || n == "p" {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "li", "tr":
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tok.Text())
			}
		}
	}
}
