package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

const annexJSON = `{
  "numFactura": "FECR12345",
  "usuarios": [
    {
      "tipoDocumentoIdentificacion": "CC",
      "numDocumentoIdentificacion": "1234567890",
      "nombreUsuario": "PEREZ GOMEZ JUAN CARLOS",
      "codSexo": "M",
      "fechaNacimiento": "1990-06-20",
      "codMunicipioResidencia": "11001",
      "codZonaTerritorialResidencia": "01",
      "servicios": {
        "medicamentos": [
          {
            "codPrestador": "110010000001",
            "numAutorizacion": "AUT-900",
            "codTecnologiaSalud": "19903952-1",
            "nomTecnologiaSalud": "ACETAMINOFEN 500MG",
            "tipoMedicamento": "01",
            "vrUnitMedicamento": "500.0",
            "vrServicio": 1000,
            "cantidadMedicamento": "2",
            "unidadMinDispensa": 30,
            "diasTratamiento": 5,
            "codDiagnosticoPrincipal": "J039",
            "idMIPRES": "MP-1",
            "fechaDispensAdmon": "2024-03-15",
            "formaFarmaceutica": "TAB",
            "concentracionMedicamento": 500
          }
        ],
        "otrosServicios": [
          {
            "codPrestador": "110010000001",
            "codTecnologiaSalud": "OTR-01",
            "nomTecnologiaSalud": "TRASLADO ASISTENCIAL",
            "tipoOS": "04",
            "fechaSuministroTecnologia": "2024/03/15",
            "vrUnitOS": "25000",
            "vrServicio": "25000",
            "cantidadOS": 1
          }
        ]
      }
    },
    {
      "tipoDocumentoIdentificacion": "TI",
      "numDocumentoIdentificacion": "999"
    }
  ]
}`

func TestAnnexExtract(t *testing.T) {
	annex, err := NewAnnexExtractor().Extract([]byte(annexJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	patient := annex.Patient
	if patient.DocumentType != "CC" || patient.DocumentNumber != "1234567890" {
		t.Fatalf("unexpected identity %s/%s", patient.DocumentType, patient.DocumentNumber)
	}
	if patient.BirthDate == nil || !patient.BirthDate.Equal(time.Date(1990, 6, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected birth date %v", patient.BirthDate)
	}
	if patient.MunicipalityCode != "11001" {
		t.Fatalf("unexpected municipality %q", patient.MunicipalityCode)
	}

	if len(annex.Medications) != 1 {
		t.Fatalf("expected one medication, got %d", len(annex.Medications))
	}
	med := annex.Medications[0]
	if med.MedicationCode != "19903952-1" {
		t.Fatalf("unexpected medication code %q", med.MedicationCode)
	}
	if !med.UnitValue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected string value parsed, got %s", med.UnitValue)
	}
	if !med.TotalValue.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected numeric value parsed, got %s", med.TotalValue)
	}
	if med.UnitMeasure != "30" {
		t.Fatalf("expected numeric unit coerced to string, got %q", med.UnitMeasure)
	}
	if med.TreatmentDays == nil || *med.TreatmentDays != 5 {
		t.Fatalf("unexpected treatment days %v", med.TreatmentDays)
	}
	if med.Concentration != "500" {
		t.Fatalf("unexpected concentration %q", med.Concentration)
	}
	if med.AdministrationDate == nil {
		t.Fatal("expected administration date parsed")
	}

	if len(annex.OtherServices) != 1 {
		t.Fatalf("expected one other service, got %d", len(annex.OtherServices))
	}
	svc := annex.OtherServices[0]
	if svc.ServiceCode != "OTR-01" {
		t.Fatalf("unexpected service code %q", svc.ServiceCode)
	}
	if svc.ServiceDate == nil || !svc.ServiceDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected slashed date normalized, got %v", svc.ServiceDate)
	}
}

func TestAnnexExtractOnlyFirstUser(t *testing.T) {
	annex, err := NewAnnexExtractor().Extract([]byte(annexJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if annex.Patient.DocumentNumber == "999" {
		t.Fatal("expected only the first user consumed")
	}
}

func TestAnnexExtractMalformedJSONIsFatal(t *testing.T) {
	_, err := NewAnnexExtractor().Extract([]byte("{broken"))
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestAnnexExtractEmptyUsers(t *testing.T) {
	annex, err := NewAnnexExtractor().Extract([]byte(`{"usuarios": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if annex.Patient.DocumentNumber != "" || len(annex.Medications) != 0 {
		t.Fatalf("expected empty annex, got %+v", annex)
	}
}

func TestAnnexExtractBadValuesDegradeToZero(t *testing.T) {
	content := `{"usuarios":[{"tipoDocumentoIdentificacion":"CC","numDocumentoIdentificacion":"1",
	  "fechaNacimiento":"no-date",
	  "servicios":{"medicamentos":[{"codTecnologiaSalud":"X","vrUnitMedicamento":"no-number"}]}}]}`
	annex, err := NewAnnexExtractor().Extract([]byte(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if annex.Patient.BirthDate != nil {
		t.Fatalf("expected unparseable birth date dropped, got %v", annex.Patient.BirthDate)
	}
	if !annex.Medications[0].UnitValue.IsZero() {
		t.Fatalf("expected zero for unparseable value, got %s", annex.Medications[0].UnitValue)
	}
}
