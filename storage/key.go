package storage

import (
	"fmt"
	"strings"
	"time"
)

const maxSlugLen = 50

// Slugify lowercases, collapses runs of non [a-z0-9] into "-" and caps the result at 50 chars.
// Arabic titles slugify to "" or "-"; the timestamp keeps keys unique regardless.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	s := b.String()
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

// BuildKey derives audio/{yyyy}/{mm}/{slug}-{iso-timestamp}.mp3. Colons in the
// timestamp are replaced so the key stays URL and filesystem friendly.
func BuildKey(title string, now time.Time) string {
	now = now.UTC()
	ts := strings.ReplaceAll(now.Format("2006-01-02T15:04:05.000Z"), ":", "-")
	return fmt.Sprintf("audio/%04d/%02d/%s-%s.mp3", now.Year(), int(now.Month()), Slugify(title), ts)
}
