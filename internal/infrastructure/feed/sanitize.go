package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText strips markup from provider text and collapses whitespace.
// Inputs without tags are only whitespace-normalised.
func plainText(s string) string {
	if strings.ContainsRune(s, '<') {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script, style").Remove()
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
