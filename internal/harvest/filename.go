package harvest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// maxFilenameLen bounds stored attachment filenames. Truncation keeps the
// extension intact.
const maxFilenameLen = 160

// genericSegments are last URL path segments that name an action rather than
// a file, so they never make useful filenames.
var genericSegments = map[string]struct{}{
	"":           {},
	"download":   {},
	"file":       {},
	"get":        {},
	"print":      {},
	"view":       {},
	"open":       {},
	"attachment": {},
	"document":   {},
	"content":    {},
	"pdf":        {},
	"export":     {},
}

var (
	disallowedChars = regexp.MustCompile(`[^\pL\pN_.\-() ]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	plainSegment    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{2,}$`)
)

// AttachmentFilename derives a human-readable filename for a stored
// attachment. It prefers the last path segment of the URL when that plausibly
// names a file; otherwise it falls back to the document identifier plus the
// sequence hint.
func AttachmentFilename(attachmentURL, docID, ext string, seq int) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if name := filenameFromURL(attachmentURL, ext); name != "" {
		return name
	}
	if seq > 0 {
		return SafeFilename(fmt.Sprintf("%s_%d.%s", docID, seq, ext))
	}
	return SafeFilename(fmt.Sprintf("%s.%s", docID, ext))
}

// filenameFromURL returns a sanitized filename taken from the URL's last path
// segment, or "" when the segment is generic or implausible.
func filenameFromURL(attachmentURL, ext string) string {
	u, err := url.Parse(strings.TrimSpace(attachmentURL))
	if err != nil {
		return ""
	}

	path := u.Path
	segments := strings.Split(path, "/")
	last := strings.TrimSpace(segments[len(segments)-1])
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = strings.TrimSpace(unescaped)
	}
	lower := strings.ToLower(last)

	// Segment already carries the expected extension.
	if strings.HasSuffix(lower, "."+ext) && len(last) >= len(ext)+2 {
		return SafeFilename(last)
	}

	if _, generic := genericSegments[lower]; generic {
		return ""
	}

	// Some sites expose /printpdf/<slug> style endpoints where the slug is
	// the only usable name.
	if strings.Contains(path, "/printpdf/") {
		return SafeFilename(last + "." + ext)
	}

	if plainSegment.MatchString(last) {
		return SafeFilename(last + "." + ext)
	}
	return ""
}

// SafeFilename sanitizes a candidate filename: percent-decodes it, strips
// control characters, replaces disallowed characters with an underscore,
// collapses whitespace and truncates to maxFilenameLen preserving the
// extension.
func SafeFilename(name string) string {
	name = strings.TrimSpace(name)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = disallowedChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(whitespaceRuns.ReplaceAllString(name, " "))

	if len(name) <= maxFilenameLen {
		return name
	}

	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		base, ext = name[:i], name[i:]
	}
	cut := maxFilenameLen - len(ext)
	if cut < 0 {
		cut = 0
	}
	if cut > len(base) {
		cut = len(base)
	}
	return base[:cut] + ext
}
