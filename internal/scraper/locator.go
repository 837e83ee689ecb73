package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Locate finds the report data table and splits it into header and body.
// ok is false when the page has no data table or the table has no header;
// both mean "no data for this request". A table with a header but no body
// yields zero rows.
func Locate(root *html.Node) (table *RawTable, ok bool) {
	if root == nil {
		return nil, false
	}
	node := htmlquery.FindOne(root, TableXPath)
	if node == nil {
		return nil, false
	}

	sel := goquery.NewDocumentFromNode(node).Selection
	thead := sel.ChildrenFiltered("thead").First()
	if thead.Length() == 0 {
		return nil, false
	}

	var columns []string
	thead.Find("th").Each(func(_ int, th *goquery.Selection) {
		columns = append(columns, cellText(th))
	})
	if len(columns) == 0 {
		return nil, false
	}

	table = &RawTable{Columns: columns}
	sel.ChildrenFiltered("tbody").First().ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			return
		}
		row := RawRow{Marker: markerOf(cells.First())}
		cells.Each(func(_ int, td *goquery.Selection) {
			row.Cells = append(row.Cells, cellText(td))
		})
		table.Rows = append(table.Rows, row)
	})
	return table, true
}

func markerOf(cell *goquery.Selection) Marker {
	switch {
	case cell.HasClass(groupClass):
		return MarkerGroup
	case cell.HasClass(subItemClass):
		return MarkerSubItem
	case strings.TrimSpace(cell.AttrOr("class", "")) != "":
		return MarkerUnknown
	default:
		return MarkerNone
	}
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
