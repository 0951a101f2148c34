package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
)

// Fragments further apart than this many points start a new cell.
const cellGap = 10.0

// Extractor recovers plain text and a best-effort table grid from PDF
// documents. Cell boundaries are inferred from horizontal gaps between text
// fragments, which is enough for the ruled line-item and order tables these
// documents carry.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) ExtractStructuredText(ctx context.Context, data io.Reader) (*ports.StructuredText, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrExtraction, "parse pdf", errors.New("empty document"))
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "parse pdf", err)
	}

	result := &ports.StructuredText{}
	var textParts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := pageRows(reader.Page(pageNum))
		if err != nil {
			return nil, domain.WrapError(domain.ErrExtraction, fmt.Sprintf("read pdf page %d", pageNum), err)
		}
		for _, row := range rows {
			textParts = append(textParts, strings.Join(row, " "))
		}
		result.Tables = append(result.Tables, tablesFromRows(rows)...)
	}

	result.Text = strings.Join(textParts, "\n")
	return result, nil
}

// pageRows groups a page's text fragments into visual rows, each row split
// into cells at large horizontal gaps. The pdf library panics on some
// malformed content streams, hence the recover.
func pageRows(page pdf.Page) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()

	if page.V.IsNull() {
		return nil, nil
	}
	texts := page.Content().Text
	if len(texts) == 0 {
		return nil, nil
	}

	// Cluster by Y coordinate; fragments within half a line height belong to
	// the same visual row.
	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].Y != texts[j].Y {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var lines [][]pdf.Text
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		if len(lines) > 0 {
			last := lines[len(lines)-1]
			if math.Abs(last[0].Y-t.Y) < rowTolerance(last[0]) {
				lines[len(lines)-1] = append(last, t)
				continue
			}
		}
		lines = append(lines, []pdf.Text{t})
	}

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		rows = append(rows, splitCells(line))
	}
	return rows, nil
}

func rowTolerance(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize / 2
	}
	return 4.0
}

func splitCells(line []pdf.Text) []string {
	var cells []string
	var current strings.Builder
	var prevEnd float64

	for i, t := range line {
		if i > 0 {
			gap := t.X - prevEnd
			switch {
			case gap > cellGap:
				if cell := strings.TrimSpace(current.String()); cell != "" {
					cells = append(cells, cell)
				}
				current.Reset()
			case gap > 0 && needsSpace(&current, t.S):
				// Word boundaries between fragments are often dropped from
				// the content stream; a positive gap marks one.
				current.WriteByte(' ')
			}
		}
		current.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if cell := strings.TrimSpace(current.String()); cell != "" {
		cells = append(cells, cell)
	}
	return cells
}

func needsSpace(current *strings.Builder, next string) bool {
	if current.Len() == 0 {
		return false
	}
	return !strings.HasSuffix(current.String(), " ") && !strings.HasPrefix(next, " ")
}

// tablesFromRows treats consecutive multi-cell rows as one table. Single-cell
// rows are narrative text and break the run.
func tablesFromRows(rows [][]string) [][][]string {
	var tables [][][]string
	var current [][]string

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, row := range rows {
		if len(row) >= 2 {
			current = append(current, row)
			continue
		}
		flush()
	}
	flush()
	return tables
}
