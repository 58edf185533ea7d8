package scheme

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/session"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// Backend is the remote scheme API.
type Backend interface {
	SubmitScheme(ctx context.Context, kind Kind, p Payload) (Receipt, error)
	VerifyScheme(ctx context.Context, kind Kind, id, notes string) error
	RejectScheme(ctx context.Context, kind Kind, id, notes string) error
	ExportScheme(ctx context.Context, kind Kind, id, format string) ([]byte, error)
}

// File is a downloaded export.
type File struct {
	Name string
	Data []byte
}

// Service gates scheme actions on the session role and forwards them to the
// backend.
type Service struct {
	backend Backend
	session session.Session
	logger  *zap.Logger
}

// NewService returns a scheme service.
func NewService(backend Backend, sess session.Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, session: sess, logger: logger}
}

// Submit validates the draft and creates it. Creator role is required.
func (s *Service) Submit(ctx context.Context, d Draft) (Receipt, error) {
	user, err := session.Require(s.session, session.Creator)
	if err != nil {
		return Receipt{}, err
	}
	payload, err := d.Payload()
	if err != nil {
		return Receipt{}, err
	}

	receipt, err := s.backend.SubmitScheme(ctx, d.Kind, payload)
	if err != nil {
		s.logger.Error("failed to create scheme",
			zap.String("op", "scheme.Submit"),
			zap.String("kind", string(d.Kind)),
			zap.String("schemeCode", payload.SchemeCode),
			zap.Error(err),
		)
		return Receipt{}, fmt.Errorf("failed to create scheme %s: %w", payload.SchemeCode, err)
	}
	if receipt.SchemeCode == "" {
		receipt.SchemeCode = payload.SchemeCode
	}

	s.logger.Info("created scheme",
		zap.String("op", "scheme.Submit"),
		zap.String("kind", string(d.Kind)),
		zap.String("schemeCode", receipt.SchemeCode),
		zap.String("user", user.Name),
		zap.Int("distributors", len(payload.Distributors)),
		zap.Int("products", len(payload.Products)),
	)
	return receipt, nil
}

// Verify approves a submitted scheme. Verifier role is required.
func (s *Service) Verify(ctx context.Context, kind Kind, id, notes string) error {
	if _, err := session.Require(s.session, session.Verifier); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return validation.NewError("id", "is required")
	}
	if err := s.backend.VerifyScheme(ctx, kind, id, notes); err != nil {
		return fmt.Errorf("failed to verify scheme %s: %w", id, err)
	}
	s.logger.Info("verified scheme", zap.String("op", "scheme.Verify"), zap.String("id", id))
	return nil
}

// Reject returns a submitted scheme with a reason. Verifier role is
// required and the reason may not be blank.
func (s *Service) Reject(ctx context.Context, kind Kind, id, reason string) error {
	if _, err := session.Require(s.session, session.Verifier); err != nil {
		return err
	}
	problems := &validation.Error{}
	if strings.TrimSpace(id) == "" {
		problems.Add("id", "is required")
	}
	if strings.TrimSpace(reason) == "" {
		problems.Add("notes", "a rejection reason is required")
	}
	if err := problems.OrNil(); err != nil {
		return err
	}
	if err := s.backend.RejectScheme(ctx, kind, id, reason); err != nil {
		return fmt.Errorf("failed to reject scheme %s: %w", id, err)
	}
	s.logger.Info("rejected scheme", zap.String("op", "scheme.Reject"), zap.String("id", id))
	return nil
}

// Export downloads a scheme rendered by the export service. Any signed-in
// user may export.
func (s *Service) Export(ctx context.Context, kind Kind, id, name, format string) (File, error) {
	if _, err := session.Require(s.session, session.Viewer); err != nil {
		return File{}, err
	}
	if err := validation.ValidateExportFormat(format); err != nil {
		return File{}, err
	}
	data, err := s.backend.ExportScheme(ctx, kind, id, format)
	if err != nil {
		return File{}, fmt.Errorf("failed to export scheme %s: %w", id, err)
	}
	if name == "" {
		name = id
	}
	return File{Name: ExportFileName(name, format), Data: data}, nil
}
