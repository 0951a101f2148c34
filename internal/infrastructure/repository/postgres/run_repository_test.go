package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RunRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, invoice_key, history_key").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesStoredResult(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	result := domain.Result{
		Identity: domain.IdentitySummary{InvoiceNumber: "FECR12345", DocumentNumber: "1234567890"},
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "invoice_key", "history_key", "annex_key", "status", "error_message", "result", "created_at", "updated_at",
	}).AddRow("run-1", "run-1/invoice.pdf", "run-1/history.pdf", nil, "completed", nil, resultJSON, now, now)

	mock.ExpectQuery("SELECT id, invoice_key, history_key").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != domain.StatusCompleted {
		t.Fatalf("unexpected status %s", run.Status)
	}
	if run.AnnexKey != "" {
		t.Fatalf("expected empty annex key, got %q", run.AnnexKey)
	}
	if run.Result == nil || run.Result.Identity.InvoiceNumber != "FECR12345" {
		t.Fatalf("expected decoded result, got %+v", run.Result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateInsertsRun(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	run := &domain.Run{
		ID:         "run-1",
		InvoiceKey: "run-1/invoice.pdf",
		HistoryKey: "run-1/history.pdf",
		AnnexKey:   "run-1/annex.json",
		Status:     domain.StatusReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO processing_runs").
		WithArgs(run.ID, run.InvoiceKey, run.HistoryKey, run.AnnexKey, string(run.Status), run.Error, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE processing_runs").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE processing_runs").
		WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveResult(context.Background(), "missing", &domain.Result{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
