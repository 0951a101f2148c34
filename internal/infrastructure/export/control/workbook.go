package control

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// Writer produces the per-run control workbook: a summary sheet with the
// resolved identity and record counts, and a sheet listing every validation
// message. Auditors review this file before submitting the flat files.
type Writer struct {
	baseDir string
	logger  *slog.Logger
}

func NewWriter(baseDir string, logger *slog.Logger) *Writer {
	if baseDir == "" {
		baseDir = "./data/output"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{baseDir: baseDir, logger: logger}
}

func (w *Writer) Export(ctx context.Context, run *domain.Run, result *domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, run, result); err != nil {
		return err
	}
	if err := writeValidationSheet(f, result.Records.Messages); err != nil {
		return err
	}

	// The default sheet excelize creates is replaced by Resumen.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("xlsx delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex("Resumen"); err == nil {
		f.SetActiveSheet(index)
	}

	dir := filepath.Join(w.baseDir, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, "control.xlsx")
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("control workbook written",
		"run_id", run.ID,
		"path", path,
		"messages", len(result.Records.Messages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeSummarySheet(f *excelize.File, run *domain.Run, result *domain.Result) error {
	const sheet = "Resumen"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx new sheet: %w", err)
	}

	set := result.Records
	userCount := 0
	if set.User != nil {
		userCount = 1
	}
	rows := [][2]any{
		{"Corrida", run.ID},
		{"Factura", result.Identity.InvoiceNumber},
		{"Fecha factura", result.Identity.InvoiceDate},
		{"Tipo documento", result.Identity.DocumentType},
		{"Numero documento", result.Identity.DocumentNumber},
		{"Paciente", result.Identity.FullName},
		{"Valor total", set.Invoice.TotalValue.StringFixed(2)},
		{"Registros AF", 1},
		{"Registros US", userCount},
		{"Registros AP", len(set.Procedures)},
		{"Registros AC", len(set.Consultations)},
		{"Registros AM", len(set.Medications)},
		{"Registros AT", len(set.OtherServices)},
		{"Mensajes de validacion", len(set.Messages)},
	}
	for i, r := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(sheet, keyCell, r[0]); err != nil {
			return fmt.Errorf("xlsx set cell: %w", err)
		}
		if err := f.SetCellValue(sheet, valueCell, r[1]); err != nil {
			return fmt.Errorf("xlsx set cell: %w", err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 40)
	return nil
}

func writeValidationSheet(f *excelize.File, messages []domain.ValidationMessage) error {
	const sheet = "Validaciones"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx new sheet: %w", err)
	}

	headers := []string{"Severidad", "Codigo", "Mensaje"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx set header: %w", err)
		}
	}

	for i, msg := range messages {
		row := i + 2
		values := []any{string(msg.Severity), msg.Code, msg.Message}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("xlsx set cell: %w", err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "C", 80)
	return nil
}
