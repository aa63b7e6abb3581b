package compact

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const mediaSelector = "img, source, input[type=image]"

// stripInlinePayloads blanks data: URIs in src and drops data: candidates
// from srcset. External references are left untouched.
func stripInlinePayloads(root *html.Node) {
	goquery.NewDocumentFromNode(root).Find(mediaSelector).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && isDataURI(src) {
			s.SetAttr("src", "")
		}
		if set, ok := s.Attr("srcset"); ok && strings.Contains(strings.ToLower(set), "data:") {
			s.SetAttr("srcset", filterSrcset(set))
		}
	})
}

func isDataURI(v string) bool {
	v = strings.TrimSpace(v)
	return len(v) >= 5 && strings.EqualFold(v[:5], "data:")
}

// filterSrcset rewrites a srcset list without data: candidates. Candidate URLs
// run up to the first whitespace, so commas inside a data URI do not split it.
func filterSrcset(set string) string {
	var kept []string
	for _, c := range splitSrcset(set) {
		if !isDataURI(c) {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, ", ")
}

func splitSrcset(set string) []string {
	var out []string
	i := 0
	for i < len(set) {
		for i < len(set) && (isSpace(set[i]) || set[i] == ',') {
			i++
		}
		if i >= len(set) {
			break
		}
		start := i
		for i < len(set) && !isSpace(set[i]) {
			i++
		}
		url := set[start:i]
		trailingComma := strings.HasSuffix(url, ",")
		url = strings.TrimRight(url, ",")
		desc := ""
		if !trailingComma {
			j := strings.IndexByte(set[i:], ',')
			if j < 0 {
				desc = set[i:]
				i = len(set)
			} else {
				desc = set[i : i+j]
				i += j + 1
			}
		}
		cand := url
		if d := strings.Join(strings.Fields(desc), " "); d != "" {
			cand += " " + d
		}
		if cand != "" {
			out = append(out, cand)
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
