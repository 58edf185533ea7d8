package scheme

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iwvelando/scheme-engine/internal/session"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

type fakeBackend struct {
	submitted []Payload
	verified  []string
	rejected  map[string]string
	exported  []string
	fail      error
}

func (f *fakeBackend) SubmitScheme(_ context.Context, _ Kind, p Payload) (Receipt, error) {
	if f.fail != nil {
		return Receipt{}, f.fail
	}
	f.submitted = append(f.submitted, p)
	return Receipt{ID: "s1"}, nil
}

func (f *fakeBackend) VerifyScheme(_ context.Context, _ Kind, id, _ string) error {
	if f.fail != nil {
		return f.fail
	}
	f.verified = append(f.verified, id)
	return nil
}

func (f *fakeBackend) RejectScheme(_ context.Context, _ Kind, id, notes string) error {
	if f.fail != nil {
		return f.fail
	}
	if f.rejected == nil {
		f.rejected = make(map[string]string)
	}
	f.rejected[id] = notes
	return nil
}

func (f *fakeBackend) ExportScheme(_ context.Context, _ Kind, id, format string) ([]byte, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.exported = append(f.exported, id+"."+format)
	return []byte("file"), nil
}

func signedIn(role session.Role) *session.TokenSession {
	return session.New("token", session.User{ID: "u1", Name: "Asha", Role: role}, time.Time{})
}

func TestSubmitRequiresCreator(t *testing.T) {
	backend := &fakeBackend{}

	svc := NewService(backend, signedIn(session.Verifier), nil)
	var forbidden *session.ForbiddenError
	if _, err := svc.Submit(context.Background(), validDraft(Additional)); !errors.As(err, &forbidden) {
		t.Errorf("expected *session.ForbiddenError, got %v", err)
	}

	svc = NewService(backend, session.Anonymous(), nil)
	if _, err := svc.Submit(context.Background(), validDraft(Additional)); !errors.Is(err, session.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if len(backend.submitted) != 0 {
		t.Errorf("nothing should be sent without permission")
	}
}

func TestSubmit(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	backend := &fakeBackend{}
	svc := NewService(backend, signedIn(session.Admin), zap.New(core))

	receipt, err := svc.Submit(context.Background(), validDraft(Base))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if receipt.ID != "s1" || receipt.SchemeCode != "SCHM00000042" {
		t.Errorf("unexpected receipt %+v", receipt)
	}
	if len(backend.submitted) != 1 {
		t.Fatalf("expected one submission")
	}
	if logs.FilterMessage("created scheme").Len() != 1 {
		t.Errorf("expected a creation log entry")
	}

	bad := validDraft(Base)
	bad.Products = nil
	var verr *validation.Error
	if _, err := svc.Submit(context.Background(), bad); !errors.As(err, &verr) {
		t.Errorf("expected a validation error, got %v", err)
	}
	if len(backend.submitted) != 1 {
		t.Errorf("invalid draft must not be sent")
	}

	backend.fail = errors.New("500")
	if _, err := svc.Submit(context.Background(), validDraft(Base)); err == nil {
		t.Errorf("expected the backend failure to surface")
	}
}

func TestVerifyAndReject(t *testing.T) {
	backend := &fakeBackend{}
	ctx := context.Background()

	viewer := NewService(backend, signedIn(session.Viewer), nil)
	if err := viewer.Verify(ctx, Base, "s1", ""); err == nil {
		t.Errorf("viewer should not verify")
	}

	verifier := NewService(backend, signedIn(session.Verifier), nil)
	if err := verifier.Verify(ctx, Base, "s1", "ok"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if err := verifier.Reject(ctx, Base, "s2", "  "); err == nil {
		t.Errorf("blank rejection reason should fail")
	}
	if err := verifier.Reject(ctx, Base, "s2", "prices too high"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if len(backend.verified) != 1 || backend.rejected["s2"] != "prices too high" {
		t.Errorf("unexpected backend state %+v", backend)
	}
}

func TestExport(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, signedIn(session.Viewer), nil)

	file, err := svc.Export(context.Background(), Base, "s1", "Summer", "excel")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if file.Name != "Scheme_Summer.xlsx" || string(file.Data) != "file" {
		t.Errorf("unexpected file %+v", file)
	}
	if _, err := svc.Export(context.Background(), Base, "s1", "", "docx"); err == nil {
		t.Errorf("expected an error for an unknown format")
	}
	if len(backend.exported) != 1 {
		t.Errorf("invalid format must not reach the backend")
	}
}
