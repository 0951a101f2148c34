package extract

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

var (
	invoiceIDRe       = regexp.MustCompile(`(?i)\bNo[.: ]+([A-Za-z0-9-]+)`)
	invoiceIDFallback = regexp.MustCompile(`\b(FE[A-Z]{1,3}[0-9]{3,})\b`)
	supplierLabelRe   = regexp.MustCompile(`(?i)^nit[.: ]`)
	supplierTaxIDRe   = regexp.MustCompile(`([0-9]{3,}-[0-9])`)
	customerTaxIDRe   = regexp.MustCompile(`(?i)\bNIT[:. ]+([0-9-]+)`)
	amountInLineRe    = regexp.MustCompile(`\$\s*[0-9.,]+`)
)

// issueDatePatterns pairs a layout with the regexp that locates it. Order is
// the resolution priority; the first match wins.
var issueDatePatterns = []struct {
	layout  string
	pattern *regexp.Regexp
}{
	{"02/01/2006", regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)},
	{"02-01-2006", regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`)},
	{"2006-01-02", regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)},
	{"2/1/06", regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2})`)},
}

// InvoiceExtractor turns the invoice text and its extracted tables into an
// Invoice entity. It is tuned to the provider's FERO template.
type InvoiceExtractor struct{}

func NewInvoiceExtractor() *InvoiceExtractor {
	return &InvoiceExtractor{}
}

// Extract parses the invoice. Only an unresolvable issue date is fatal;
// every other field degrades to its zero value when no pattern matches.
func (e *InvoiceExtractor) Extract(text string, tables [][][]string) (*domain.Invoice, error) {
	lines := nonBlankLines(text)

	issueDate, err := e.extractIssueDate(text)
	if err != nil {
		return nil, err
	}

	invoice := &domain.Invoice{
		InvoiceID: e.extractInvoiceID(lines, text),
		IssueDate: issueDate,
		Currency:  "COP",
	}
	if len(lines) > 0 {
		invoice.SupplierName = lines[0]
	}
	invoice.SupplierTaxID = extractSupplierTaxID(lines)
	invoice.CustomerName = extractCustomerName(lines)
	invoice.CustomerTaxID = extractCustomerTaxID(lines)
	invoice.Lines = extractInvoiceLines(tables)
	invoice.TotalAmount = resolveTotalAmount(lines, invoice.Lines)
	return invoice, nil
}

func (e *InvoiceExtractor) extractInvoiceID(lines []string, fullText string) string {
	for _, line := range lines {
		if m := invoiceIDRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := invoiceIDFallback.FindStringSubmatch(fullText); m != nil {
		return m[1]
	}
	return ""
}

func (e *InvoiceExtractor) extractIssueDate(text string) (time.Time, error) {
	for _, candidate := range issueDatePatterns {
		m := candidate.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		parsed, err := time.Parse(candidate.layout, m[1])
		if err != nil {
			continue
		}
		return parsed, nil
	}
	return time.Time{}, domain.WrapError(domain.ErrExtraction, "invoice issue date", errors.New("no supported date format matched"))
}

func extractSupplierTaxID(lines []string) string {
	for _, line := range lines {
		if !supplierLabelRe.MatchString(line) {
			continue
		}
		if m := supplierTaxIDRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractCustomerName(lines []string) string {
	for idx, line := range lines {
		if strings.ToLower(line) != "cliente" {
			continue
		}
		for _, candidate := range window(lines, idx+1, idx+5) {
			if candidate != "" && strings.ToLower(candidate) != "cliente" {
				return candidate
			}
		}
	}
	return ""
}

func extractCustomerTaxID(lines []string) string {
	for idx, line := range lines {
		if strings.ToLower(line) != "cliente" {
			continue
		}
		for _, candidate := range window(lines, idx+1, idx+10) {
			if m := customerTaxIDRe.FindStringSubmatch(candidate); m != nil {
				return m[1]
			}
		}
		break
	}
	for _, line := range lines {
		if m := customerTaxIDRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractInvoiceLines reads item rows from tables whose header carries both a
// code and a name column. Subtotal rows and rows without a line id are noise.
func extractInvoiceLines(tables [][][]string) []domain.InvoiceLine {
	var invoiceLines []domain.InvoiceLine
	for _, table := range tables {
		if len(table) < 2 {
			continue
		}
		header := make(map[string]bool, len(table[0]))
		for _, cell := range table[0] {
			header[strings.ToLower(strings.TrimSpace(cell))] = true
		}
		if !header["codigo"] || !header["nombre"] {
			continue
		}
		for _, row := range table[1:] {
			if len(row) == 0 {
				continue
			}
			firstCell := strings.TrimSpace(cell(row, 0))
			if firstCell == "" || strings.HasPrefix(strings.ToUpper(firstCell), "SUBTOTAL") {
				continue
			}
			quantity := ParseMoney(cell(row, 5))
			unitPrice := ParseMoney(cell(row, 6))
			lineTotal := ParseMoney(cell(row, 7))
			if lineTotal.IsZero() && !unitPrice.IsZero() && !quantity.IsZero() {
				lineTotal = unitPrice.Mul(quantity)
			}
			invoiceLines = append(invoiceLines, domain.InvoiceLine{
				LineID:      firstCell,
				CUPSCode:    strings.TrimSpace(cell(row, 1)),
				Description: collapseSpaces(cell(row, 2)),
				Quantity:    quantity,
				UnitPrice:   unitPrice,
				LineTotal:   lineTotal,
			})
		}
	}
	return invoiceLines
}

// resolveTotalAmount resolution order: explicit Total label, explicit
// Subtotal label, sum of line totals, zero.
func resolveTotalAmount(lines []string, items []domain.InvoiceLine) decimal.Decimal {
	if total, ok := amountAfterLabel(lines, "total"); ok {
		return total
	}
	if total, ok := amountAfterLabel(lines, "subtotal"); ok {
		return total
	}
	if len(items) > 0 {
		sum := decimal.Zero
		for _, item := range items {
			sum = sum.Add(item.LineTotal)
		}
		return sum
	}
	return decimal.Zero
}

func amountAfterLabel(lines []string, label string) (decimal.Decimal, bool) {
	for idx, line := range lines {
		if !strings.HasPrefix(strings.ToLower(line), label) {
			continue
		}
		if amount, ok := amountInLine(line); ok {
			return amount, true
		}
		for _, candidate := range window(lines, idx+1, idx+4) {
			if amount, ok := amountInLine(candidate); ok {
				return amount, true
			}
		}
	}
	return decimal.Zero, false
}

func amountInLine(line string) (decimal.Decimal, bool) {
	matches := amountInLineRe.FindAllString(line, -1)
	if len(matches) == 0 {
		return decimal.Zero, false
	}
	parsed := ParseMoney(matches[len(matches)-1])
	if parsed.IsZero() {
		return decimal.Zero, false
	}
	return parsed, true
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func window(lines []string, from, to int) []string {
	if from > len(lines) {
		return nil
	}
	if to > len(lines) {
		to = len(lines)
	}
	return lines[from:to]
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
