package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
)

type runRepoFake struct {
	created   *domain.Run
	createErr error
	run       *domain.Run
	getErr    error

	statusCalls []statusCall
	statusErr   error
	savedResult *domain.Result
	saveErr     error
}

type statusCall struct {
	status domain.RunStatus
	errMsg string
}

func (f *runRepoFake) Create(_ context.Context, run *domain.Run) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = run
	return nil
}

func (f *runRepoFake) GetByID(context.Context, string) (*domain.Run, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyRun := *f.run
	return &copyRun, nil
}

func (f *runRepoFake) UpdateStatus(_ context.Context, _ string, status domain.RunStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

func (f *runRepoFake) SaveResult(_ context.Context, _ string, result *domain.Result) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedResult = result
	return nil
}

type storageFake struct {
	objects map[string][]byte
	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	raw, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishRunCreated(_ context.Context, runID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, runID)
	return nil
}

func (f *queueFake) SubscribeRunCreated(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestIngestStoresDocumentsAndPublishes(t *testing.T) {
	repo := &runRepoFake{}
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestRunUseCase(repo, storage, queue)

	run, err := uc.Ingest(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader("invoice-bytes"),
		History: strings.NewReader("history-bytes"),
		Annex:   strings.NewReader(`{"usuarios":[]}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Status != domain.StatusReceived {
		t.Fatalf("expected received status, got %s", run.Status)
	}
	if repo.created == nil || repo.created.ID != run.ID {
		t.Fatalf("expected run persisted, got %+v", repo.created)
	}
	if len(storage.objects) != 3 {
		t.Fatalf("expected three stored objects, got %d", len(storage.objects))
	}
	if string(storage.objects[run.InvoiceKey]) != "invoice-bytes" {
		t.Fatalf("invoice content mismatch")
	}
	if run.AnnexKey == "" {
		t.Fatal("expected annex key set")
	}
	if len(queue.published) != 1 || queue.published[0] != run.ID {
		t.Fatalf("expected run id published, got %v", queue.published)
	}
}

func TestIngestWithoutAnnex(t *testing.T) {
	repo := &runRepoFake{}
	storage := newStorageFake()
	uc := NewIngestRunUseCase(repo, storage, &queueFake{})

	run, err := uc.Ingest(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader("invoice-bytes"),
		History: strings.NewReader("history-bytes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.AnnexKey != "" {
		t.Fatalf("expected no annex key, got %q", run.AnnexKey)
	}
	if len(storage.objects) != 2 {
		t.Fatalf("expected two stored objects, got %d", len(storage.objects))
	}
}

func TestIngestRejectsMissingDocuments(t *testing.T) {
	uc := NewIngestRunUseCase(&runRepoFake{}, newStorageFake(), &queueFake{})

	_, err := uc.Ingest(context.Background(), ports.RunDocuments{History: strings.NewReader("x")})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing invoice, got %v", err)
	}
	_, err = uc.Ingest(context.Background(), ports.RunDocuments{Invoice: strings.NewReader("x")})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing history, got %v", err)
	}
}

func TestIngestPropagatesStorageError(t *testing.T) {
	storage := newStorageFake()
	storage.saveErr = errors.New("disk full")
	uc := NewIngestRunUseCase(&runRepoFake{}, storage, &queueFake{})

	_, err := uc.Ingest(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader("x"),
		History: strings.NewReader("y"),
	})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected storage error surfaced, got %v", err)
	}
}

func TestIngestPropagatesQueueError(t *testing.T) {
	queue := &queueFake{publishErr: errors.New("nats down")}
	uc := NewIngestRunUseCase(&runRepoFake{}, newStorageFake(), queue)

	_, err := uc.Ingest(context.Background(), ports.RunDocuments{
		Invoice: strings.NewReader("x"),
		History: strings.NewReader("y"),
	})
	if err == nil || !strings.Contains(err.Error(), "nats down") {
		t.Fatalf("expected queue error surfaced, got %v", err)
	}
}
