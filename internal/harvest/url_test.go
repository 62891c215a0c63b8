package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "Empty",
			in:   "",
			want: "",
		},
		{
			name: "NoQuery",
			in:   "https://example.org/news/item",
			want: "https://example.org/news/item",
		},
		{
			name: "DropsFragment",
			in:   "https://example.org/news/item#section-2",
			want: "https://example.org/news/item",
		},
		{
			name: "DropsTrackingParams",
			in:   "https://x/a?utm_source=y&id=5",
			want: "https://x/a?id=5",
		},
		{
			name: "DropsCacheBusters",
			in:   "https://x/report.pdf?ts=123&cb=9&nocache=1",
			want: "https://x/report.pdf",
		},
		{
			name: "SortsByKey",
			in:   "https://x/a?b=1&a=2",
			want: "https://x/a?a=2&b=1",
		},
		{
			name: "SortsValuesWithinKey",
			in:   "https://x/a?k=z&k=a",
			want: "https://x/a?k=a&k=z",
		},
		{
			name: "KeepsBlankValues",
			in:   "https://x/a?flag=&id=5",
			want: "https://x/a?flag=&id=5",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalizeURL(tc.in))
		})
	}
}

func TestCanonicalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://example.org/a?b=1&a=2&utm_medium=mail#frag",
		"https://example.org/path%20with%20space?x=1",
		"https://x/report.pdf?ts=456",
		"http://host:8080/p?q=v",
	}
	for _, u := range urls {
		once := CanonicalizeURL(u)
		assert.Equal(t, once, CanonicalizeURL(once), "url %q", u)
	}
}

func TestCanonicalizeURLOrderIndependent(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		CanonicalizeURL("https://x/a?b=1&a=2"),
		CanonicalizeURL("https://x/a?a=2&b=1"),
	)
}

func TestCanonicalizeURLTrackingVariantsConverge(t *testing.T) {
	t.Parallel()

	a := CanonicalizeURL("https://x/report.pdf?ts=123")
	b := CanonicalizeURL("https://x/report.pdf?ts=456")
	assert.Equal(t, a, b)
	assert.Equal(t, "https://x/report.pdf", a)
}
