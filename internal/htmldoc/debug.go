package htmldoc

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DebugPrintSelector prints either the outer HTML or the text of every match
// for selector. It backs the CLI's --selector mode, which is used to inspect
// a documentation page before pointing the extractor at it.
func DebugPrintSelector(w io.Writer, content, selector string, textOnly bool) error {
	doc, err := Parse(content)
	if err != nil {
		return err
	}

	var werr error
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var out string
		if textOnly {
			out = strings.TrimSpace(s.Text())
		} else if outer, err := goquery.OuterHtml(s); err == nil {
			out = outer
		} else {
			out, _ = s.Html()
		}
		if _, werr = fmt.Fprintf(w, "%s\n\n", out); werr != nil {
			return false
		}
		return true
	})
	return werr
}
