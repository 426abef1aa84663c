package feed

import (
	"testing"
	"time"

	"github.com/gorilla/feeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const placeholder = "(Keine News gefunden)"

func buildFeed(t *testing.T, titles ...string) *feeds.Feed {
	t.Helper()
	created := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	f := &feeds.Feed{
		Title:       "Example Feed",
		Link:        &feeds.Link{Href: "https://example.com/"},
		Description: "Example headlines",
		Author:      &feeds.Author{Name: "Example"},
		Created:     created,
	}
	for i, title := range titles {
		f.Items = append(f.Items, &feeds.Item{
			Id:          "https://example.com/" + string(rune('a'+i)),
			Title:       title,
			Link:        &feeds.Link{Href: "https://example.com/" + string(rune('a'+i))},
			Description: "about " + title,
			Created:     created.Add(time.Duration(i) * time.Minute),
		})
	}
	return f
}

func TestExtractTitlesRSS(t *testing.T) {
	rss, err := buildFeed(t, "A", "A", "B").ToRss()
	require.NoError(t, err)

	titles, err := ExtractTitles([]byte(rss), 5, placeholder)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, titles)
}

func TestExtractTitlesRSSTruncates(t *testing.T) {
	rss, err := buildFeed(t, "One", "Two", "Three", "Four").ToRss()
	require.NoError(t, err)

	titles, err := ExtractTitles([]byte(rss), 3, placeholder)
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two", "Three"}, titles)
}

func TestExtractTitlesAtom(t *testing.T) {
	atom, err := buildFeed(t, "First entry", "Second entry").ToAtom()
	require.NoError(t, err)

	titles, err := ExtractTitles([]byte(atom), 1, placeholder)
	require.NoError(t, err)
	assert.Equal(t, []string{"First entry"}, titles)

	titles, err = ExtractTitles([]byte(atom), 5, placeholder)
	require.NoError(t, err)
	assert.Equal(t, []string{"First entry", "Second entry"}, titles, "feed title must not leak into atom results")
}

func TestExtractTitlesFallbacks(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want []string
	}{
		{
			name: "channel title only is picked up by the fallback",
			xml:  `<rss version="2.0"><channel><title>Only the feed</title></channel></rss>`,
			want: []string{"Only the feed"},
		},
		{
			name: "no titles at all",
			xml:  `<rss version="2.0"><channel><description>empty</description></channel></rss>`,
			want: []string{placeholder},
		},
		{
			name: "blank titles are ignored",
			xml:  `<rss><channel><item><title>   </title></item></channel></rss>`,
			want: []string{placeholder},
		},
		{
			name: "blank item titles end the lookup before the channel title",
			xml:  `<rss><channel><title>Feed Name</title><item><title>   </title></item></channel></rss>`,
			want: []string{placeholder},
		},
		{
			name: "empty item titles fall through to the channel title",
			xml:  `<rss><channel><title>Feed Name</title><item><title></title></item></channel></rss>`,
			want: []string{"Feed Name"},
		},
		{
			name: "rss items win over other titles",
			xml:  `<rss><channel><title>Feed</title><item><title>Item</title></item></channel></rss>`,
			want: []string{"Item"},
		},
		{
			name: "namespaced channel skips the rss pass",
			xml: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/">` +
				`<channel><title>Feed</title></channel><item><title>X</title></item></rdf:RDF>`,
			want: []string{"Feed", "X"},
		},
		{
			name: "prefixed atom entries",
			xml: `<a:feed xmlns:a="http://www.w3.org/2005/Atom"><a:title>Feed</a:title>` +
				`<a:entry><a:title>E1</a:title></a:entry></a:feed>`,
			want: []string{"E1"},
		},
		{
			name: "root title is not a candidate",
			xml:  `<title>Root</title>`,
			want: []string{placeholder},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			titles, err := ExtractTitles([]byte(tt.xml), 5, placeholder)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestExtractTitlesCleansText(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rss><channel>
  <item><title>
     Tom &amp; Jerry
       are   back
  </title></item>
  <item><title>Caf&eacute; &amp;quot;Central&amp;quot;</title></item>
  <item><title><![CDATA[Breaking:   <b>News</b>]]></title></item>
  <item><title>Tom &amp; Jerry are back</title></item>
</channel></rss>`

	titles, err := ExtractTitles([]byte(doc), 5, placeholder)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Tom & Jerry are back",
		`Café "Central"`,
		"Breaking: <b>News</b>",
	}, titles)
}

func TestExtractTitlesCharset(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss><channel><item><title>M\xfcnchen</title></item></channel></rss>")

	titles, err := ExtractTitles(doc, 5, placeholder)
	require.NoError(t, err)
	assert.Equal(t, []string{"München"}, titles)
}

func TestExtractTitlesMalformed(t *testing.T) {
	docs := map[string]string{
		"unclosed":      `<rss><channel><item><title>A</title></item>`,
		"mismatched":    `<rss><channel></rss></channel>`,
		"plain text":    `this is not xml`,
		"empty":         ``,
		"html":          `<html><body><p>hi</body></html>`,
		"two roots":     `<a></a><b></b>`,
		"bad entity":    `<rss><channel><item><title>&bogus;</title></item></channel></rss>`,
		"trailing text": `<rss></rss>garbage`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := ExtractTitles([]byte(doc), 5, placeholder)
				assert.Error(t, err)
			})
		})
	}
}

func TestExtractTitlesZeroCountReturnsOne(t *testing.T) {
	titles, err := ExtractTitles([]byte(`<rss><channel><item><title>A</title></item><item><title>B</title></item></channel></rss>`), 0, placeholder)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\tb   c  "))
	assert.Equal(t, "Fish & Chips", CleanText("Fish &amp; Chips"))
	assert.Equal(t, "", CleanText(" \n "))
}
