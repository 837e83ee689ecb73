package scraper

import (
	"fmt"

	"go.uber.org/zap"
)

// GroupPolicy decides whether a group row is itself a data row.
type GroupPolicy string

const (
	// GroupLookahead emits a group row only when the next row is not one of
	// its sub-items.
	GroupLookahead GroupPolicy = "lookahead"
	// GroupAlways emits every group row and leaves pure headers to the
	// all-missing drop.
	GroupAlways GroupPolicy = "always"
)

// ParseGroupPolicy validates a policy name. Empty means GroupLookahead.
func ParseGroupPolicy(s string) (GroupPolicy, error) {
	switch GroupPolicy(s) {
	case "", GroupLookahead:
		return GroupLookahead, nil
	case GroupAlways:
		return GroupAlways, nil
	default:
		return "", fmt.Errorf("unknown group policy %q", s)
	}
}

// Classification is the classifier output for one page.
type Classification struct {
	Rows []ClassifiedRow
	// Malformed counts rows skipped for having fewer cells than columns.
	Malformed int
	// Orphans counts sub-items seen before any group row.
	Orphans int
	// Skipped counts hierarchical rows with an unknown marker.
	Skipped int
}

// fold is the accumulator threaded through the rows. group is the label of
// the last group row seen: one level, never a stack.
type fold struct {
	group  *string
	out    Classification
	logger *zap.Logger
}

// Classify walks the body rows in document order and resolves each row's
// group. A page whose first row has no class at all is flat: every row maps
// to one ClassifiedRow without group. In the hierarchical layout rows with
// an unknown class are skipped.
func Classify(table *RawTable, policy GroupPolicy, logger *zap.Logger) Classification {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil || len(table.Rows) == 0 {
		return Classification{}
	}

	step := policy.step
	if table.Rows[0].Marker == MarkerNone {
		step = flatStep
	}
	acc := fold{logger: logger}
	for i, row := range table.Rows {
		var next *RawRow
		if i+1 < len(table.Rows) {
			next = &table.Rows[i+1]
		}
		if len(row.Cells) < len(table.Columns) {
			logger.Warn("skipping malformed row",
				zap.Int("row", i),
				zap.Int("cells", len(row.Cells)),
				zap.Int("columns", len(table.Columns)))
			acc.out.Malformed++
			continue
		}
		acc = step(acc, table.Columns, row, next)
	}

	if acc.out.Orphans > 0 {
		logger.Warn("sub-items without a preceding group", zap.Int("rows", acc.out.Orphans))
	}
	return acc.out
}

func flatStep(acc fold, columns []string, row RawRow, _ *RawRow) fold {
	acc.out.Rows = append(acc.out.Rows, newRow(columns, row, nil, false))
	return acc
}

func (p GroupPolicy) step(acc fold, columns []string, row RawRow, next *RawRow) fold {
	switch row.Marker {
	case MarkerGroup:
		label := NormalizeLabel(row.Cells[0])
		acc.group = &label
		headerOnly := next != nil && next.Marker == MarkerSubItem
		if p == GroupAlways || !headerOnly {
			acc.out.Rows = append(acc.out.Rows, newRow(columns, row, acc.group, true))
		}
	case MarkerSubItem:
		if acc.group == nil {
			acc.out.Orphans++
		}
		acc.out.Rows = append(acc.out.Rows, newRow(columns, row, acc.group, false))
	case MarkerUnknown:
		acc.logger.Debug("skipping row with unknown marker", zap.String("key", row.Cells[0]))
		acc.out.Skipped++
	default:
		acc.out.Rows = append(acc.out.Rows, newRow(columns, row, acc.group, false))
	}
	return acc
}

func newRow(columns []string, row RawRow, group *string, header bool) ClassifiedRow {
	values := make(map[string]string, len(columns)-1)
	for i := 1; i < len(columns); i++ {
		values[columns[i]] = row.Cells[i]
	}
	return ClassifiedRow{
		Key:           row.Cells[0],
		Values:        values,
		Group:         group,
		IsGroupHeader: header,
	}
}
