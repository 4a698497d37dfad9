// Package xmlutil escapes untrusted text for XML-delimited prompt templates.
package xmlutil

import (
	"encoding/xml"
	"strings"
)

// Escape replaces characters with special meaning in XML so user-supplied
// comment text cannot break out of its delimiting tags in a prompt.
func Escape(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
