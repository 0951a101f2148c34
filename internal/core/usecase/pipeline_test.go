package usecase

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
	"github.com/factusalud/rips-engine/internal/core/rips"
)

const invoiceFixture = `CLINICA DEL NORTE SAS
NIT: 900123456-1
Factura Electronica de Venta No. FECR12345
Fecha de Emision: 15/03/2024
TOTAL $150.000,00
`

const historyFixture = `CC 1234567890 - PEREZ GOMEZ JUAN CARLOS
Atención: ADM-556677
Fecha y Hora de Ingreso: 15/03/2024 08:30:00
Servicio de ingreso: Consulta Externa
Finalidad: Consulta de Primera Vez
DXP: J039
DX DIAGNOSTICOS: FARINGITIS AGUDA
`

const annexFixture = `{
  "usuarios": [
    {
      "tipoDocumentoIdentificacion": "CC",
      "numDocumentoIdentificacion": "1234567890",
      "nombreUsuario": "PEREZ GOMEZ JUAN CARLOS",
      "codSexo": "M",
      "fechaNacimiento": "1990-06-20",
      "codMunicipioResidencia": "11001",
      "codZonaTerritorialResidencia": "01"
    }
  ]
}`

var invoiceTablesFixture = [][][]string{
	{
		{"Codigo", "Nombre", "Descripcion", "", "", "Cantidad", "Vr Unitario", "Vr Total"},
		{"1", "890201", "CONSULTA DE PRIMERA VEZ POR MEDICINA GENERAL", "", "", "1", "150.000,00", "150.000,00"},
	},
}

// textSourceFake treats the stored bytes as the already-recovered page text.
// Tables are attached to whichever stream looks like an invoice.
type textSourceFake struct {
	tables [][][]string
	err    error
}

func (f *textSourceFake) ExtractStructuredText(_ context.Context, data io.Reader) (*ports.StructuredText, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	text := string(raw)
	content := &ports.StructuredText{Text: text}
	if strings.Contains(text, "Factura") {
		content.Tables = f.tables
	}
	return content, nil
}

func newTestPipeline(textSource ports.DocumentTextSource) *GenerationPipeline {
	return NewGenerationPipeline(textSource, nil, "PROV01", rips.DefaultCodeMaps())
}

func TestPipelineRunProducesCompleteResult(t *testing.T) {
	pipeline := newTestPipeline(&textSourceFake{tables: invoiceTablesFixture})

	result, err := pipeline.Run(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader(invoiceFixture),
		History: strings.NewReader(historyFixture),
		Annex:   strings.NewReader(annexFixture),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Identity.InvoiceNumber != "FECR12345" {
		t.Fatalf("unexpected invoice number %q", result.Identity.InvoiceNumber)
	}
	if result.Identity.InvoiceDate != "2024-03-15" {
		t.Fatalf("unexpected invoice date %q", result.Identity.InvoiceDate)
	}
	if result.Identity.DocumentType != "CC" || result.Identity.DocumentNumber != "1234567890" {
		t.Fatalf("unexpected identity %s/%s", result.Identity.DocumentType, result.Identity.DocumentNumber)
	}

	records := result.Records
	if len(records.Procedures) != 1 {
		t.Fatalf("expected one procedure, got %d", len(records.Procedures))
	}
	if records.Procedures[0].CUPSCode != "890201" {
		t.Fatalf("unexpected cups code %q", records.Procedures[0].CUPSCode)
	}
	if records.User == nil {
		t.Fatal("expected user record")
	}
	if records.User.Gender != "M" {
		t.Fatalf("expected annex demographics applied, got gender %q", records.User.Gender)
	}
	if len(records.Messages) != 1 || records.Messages[0].Code != "VAL000" {
		t.Fatalf("expected clean validation, got %+v", records.Messages)
	}
}

func TestPipelineRunWithoutAnnex(t *testing.T) {
	pipeline := newTestPipeline(&textSourceFake{tables: invoiceTablesFixture})

	result, err := pipeline.Run(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader(invoiceFixture),
		History: strings.NewReader(historyFixture),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Records.User == nil {
		t.Fatal("expected user record from history identity alone")
	}
	if result.Records.User.Gender != "" {
		t.Fatalf("expected no demographics without annex, got %q", result.Records.User.Gender)
	}
	if len(result.Records.Medications) != 0 {
		t.Fatalf("expected no medications without annex, got %d", len(result.Records.Medications))
	}
}

func TestPipelineRunFailsWithoutIssueDate(t *testing.T) {
	pipeline := newTestPipeline(&textSourceFake{})

	_, err := pipeline.Run(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader("Factura sin fecha"),
		History: strings.NewReader(historyFixture),
	})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestPipelineRunRequiresBothMandatoryDocuments(t *testing.T) {
	pipeline := newTestPipeline(&textSourceFake{})

	_, err := pipeline.Run(context.Background(), ports.RunDocuments{History: strings.NewReader("x")})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = pipeline.Run(context.Background(), ports.RunDocuments{Invoice: strings.NewReader("x")})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestPipelineRunRejectsMalformedAnnex(t *testing.T) {
	pipeline := newTestPipeline(&textSourceFake{tables: invoiceTablesFixture})

	_, err := pipeline.Run(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader(invoiceFixture),
		History: strings.NewReader(historyFixture),
		Annex:   strings.NewReader("{not json"),
	})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}
