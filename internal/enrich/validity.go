package enrich

import (
	"strings"
	"unicode"

	"github.com/mwhitton/chattersignal/pkg/textnorm"
)

// minNameLetterRatio rejects names that are mostly symbols or emoji.
const minNameLetterRatio = 0.6

// nameBlocklist drops boilerplate strings that look like names but are not
// entities: stock-photo credits, platform UI text, magazine mastheads,
// generic interjections. Entries are matched against the normalized name.
var nameBlocklist = map[string]bool{
	"getty images":       true,
	"getty":              true,
	"shutterstock":       true,
	"ap photo":           true,
	"reuters":            true,
	"backgrid":           true,
	"splash news":        true,
	"wireimage":          true,
	"instagram":          true,
	"tiktok":             true,
	"youtube":            true,
	"facebook":           true,
	"twitter":            true,
	"people magazine":    true,
	"us weekly":          true,
	"daily mail":         true,
	"tmz":                true,
	"page six":           true,
	"entertainment news": true,
	"breaking news":      true,
	"link in bio":        true,
	"swipe up":           true,
	"tap for more":       true,
	"lol":                true,
	"lmao":               true,
	"omg":                true,
	"wow":                true,
	"yes":                true,
	"no":                 true,
	"ok":                 true,
	"okay":               true,
	"girl":               true,
	"bro":                true,
	"fr":                 true,
	"literally":          true,
}

// NameFilter validates candidate entity names before anything is persisted.
type NameFilter struct {
	blocklist map[string]bool
}

// NewNameFilter creates a filter over the default blocklist plus any extra
// entries supplied by configuration.
func NewNameFilter(extra []string) *NameFilter {
	bl := make(map[string]bool, len(nameBlocklist)+len(extra))
	for k := range nameBlocklist {
		bl[k] = true
	}
	for _, e := range extra {
		if norm := textnorm.Normalize(e); norm != "" {
			bl[norm] = true
		}
	}
	return &NameFilter{blocklist: bl}
}

// Valid reports whether name is a plausible entity name. Invalid names are
// dropped silently by the caller; this is filtering, not an error.
func (f *NameFilter) Valid(name string) bool {
	norm := textnorm.Normalize(name)
	if norm == "" {
		return false
	}
	if len([]rune(norm)) < 2 {
		return false
	}
	if f.blocklist[norm] {
		return false
	}
	if isNumeric(norm) {
		return false
	}
	if textnorm.LetterRatio(name) < minNameLetterRatio {
		return false
	}
	return true
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) && !strings.ContainsRune(".,-", r) {
			return false
		}
	}
	return true
}
