package flatfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// Writer emits the six RIPS flat files (AF, US, AP, AC, AM, AT) for a
// completed run under <baseDir>/<runID>/. Files with no rows are not written.
type Writer struct {
	baseDir   string
	delimiter string
}

func NewWriter(baseDir string) *Writer {
	if baseDir == "" {
		baseDir = "./data/output"
	}
	return &Writer{baseDir: baseDir, delimiter: ","}
}

func (w *Writer) Export(ctx context.Context, run *domain.Run, result *domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(w.baseDir, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	set := result.Records
	files := []struct {
		name string
		rows [][]string
	}{
		{"AF.txt", [][]string{invoiceRow(set.Invoice)}},
		{"US.txt", userRows(set.User)},
		{"AP.txt", procedureRows(set.Procedures)},
		{"AC.txt", consultationRows(set.Consultations)},
		{"AM.txt", medicationRows(set.Medications)},
		{"AT.txt", otherServiceRows(set.OtherServices)},
	}

	for _, f := range files {
		if len(f.rows) == 0 {
			continue
		}
		if err := w.writeFile(filepath.Join(dir, f.name), f.rows); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

func (w *Writer) writeFile(path string, rows [][]string) error {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, w.delimiter))
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func invoiceRow(r domain.InvoiceRecord) []string {
	return []string{
		r.ProviderCode,
		r.InvoiceNumber,
		r.InvoiceDate.Format("2006-01-02"),
		money(r.TotalValue),
		r.DocumentType,
		r.DocumentNumber,
		r.ContractNumber,
		r.PolicyNumber,
		money(r.CopaymentValue),
		money(r.CommissionValue),
		money(r.DiscountValue),
	}
}

func userRows(r *domain.UserRecord) [][]string {
	if r == nil {
		return nil
	}
	return [][]string{{
		r.DocumentType,
		r.DocumentNumber,
		r.LastName,
		r.SecondLastName,
		r.FirstName,
		r.SecondName,
		optionalInt(r.Age),
		r.AgeUnit,
		r.Gender,
		r.DepartmentCode,
		r.MunicipalityCode,
		r.ResidenceArea,
	}}
}

func procedureRows(records []domain.ProcedureRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ProviderCode,
			r.InvoiceNumber,
			r.DocumentType,
			r.DocumentNumber,
			r.ServiceDate.Format("2006-01-02"),
			r.AuthorizationNumber,
			r.ServiceCode,
			r.CUPSCode,
			r.DiagnosisCode,
			r.DiagnosisRelated,
			r.ServicePurposeCode,
			r.AttentionTypeCode,
			money(r.CopaymentValue),
			money(r.NetValue),
			r.ModalityCode,
		})
	}
	return rows
}

func consultationRows(records []domain.ConsultationRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ProviderCode,
			r.InvoiceNumber,
			r.DocumentType,
			r.DocumentNumber,
			r.ConsultationDate.Format("2006-01-02"),
			r.AuthorizationNumber,
			r.ConsultationCode,
			r.ConsultationPurpose,
			r.ExternalCause,
			r.PrincipalDiagnosis,
			r.RelatedDiagnosis1,
			r.RelatedDiagnosis2,
			r.RelatedDiagnosis3,
			r.DiagnosisType,
			money(r.ConsultationValue),
			money(r.CopaymentValue),
			money(r.NetValue),
		})
	}
	return rows
}

func medicationRows(records []domain.MedicationRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ProviderCode,
			r.InvoiceNumber,
			r.DocumentType,
			r.DocumentNumber,
			r.AuthorizationNumber,
			r.MedicationCode,
			r.MIPRESID,
			r.MedicationType,
			r.MedicationName,
			r.PharmaceuticalForm,
			r.Concentration,
			r.UnitMeasure,
			optionalInt(r.TreatmentDays),
			money(r.Quantity),
			money(r.UnitValue),
			money(r.TotalValue),
			r.PrincipalDiagnosis,
			r.RelatedDiagnosis,
			optionalDate(r.AdministrationDate),
		})
	}
	return rows
}

func otherServiceRows(records []domain.OtherServiceRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ProviderCode,
			r.InvoiceNumber,
			r.DocumentType,
			r.DocumentNumber,
			r.AuthorizationNumber,
			r.ServiceType,
			r.ServiceCode,
			r.ServiceName,
			optionalDate(r.ServiceDate),
			money(r.Quantity),
			money(r.UnitValue),
			money(r.TotalValue),
			r.MIPRESID,
			r.PrincipalDiagnosis,
			r.RelatedDiagnosis,
		})
	}
	return rows
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
