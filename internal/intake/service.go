package intake

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"strconv"
	"time"

	"github.com/loanform/loanform/internal/metrics"
	"github.com/loanform/loanform/internal/notification"
	"github.com/loanform/loanform/internal/sanitize"
	"github.com/loanform/loanform/internal/storage"
	"github.com/loanform/loanform/internal/validate"
)

// FileField is the multipart field carrying the document upload.
const FileField = "file"

// RequiredFields lists the form fields every submission must carry.
var RequiredFields = []string{
	sanitize.FieldFullName,
	sanitize.FieldEmail,
	sanitize.FieldPhone,
	sanitize.FieldLoanAmount,
}

// Submission is one raw form submission handed over by the transport layer.
type Submission struct {
	Fields map[string]string
	File   *multipart.FileHeader
}

// Result is the outcome of an accepted-or-rejected submission. A non-empty
// Errors list means the input was rejected; otherwise UserID carries the
// persisted identity.
type Result struct {
	UserID int64
	Errors []string
}

// Service orchestrates the intake flow: sanitize, validate, store the
// encrypted document, persist the applicant. Sanitization and validation are
// sequential gates; a sanitizer failure skips validation entirely.
type Service struct {
	sanitizer *sanitize.Registry
	validator *validate.Validator
	store     *storage.Service
	repo      Repository
	notifier  notification.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService wires the intake service. Notifier and metrics may be nil.
func NewService(
	sanitizer *sanitize.Registry,
	validator *validate.Validator,
	store *storage.Service,
	repo Repository,
	notifier notification.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		sanitizer: sanitizer,
		validator: validator,
		store:     store,
		repo:      repo,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
	}
}

// Submit runs the full intake flow. Input problems come back inside the
// Result; only storage and persistence failures are returned as errors.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	start := time.Now()

	fields, errs := s.sanitizer.Apply(sub.Fields, RequiredFields)
	if len(errs) > 0 {
		s.metrics.ObserveSubmission(metrics.OutcomeRejected, time.Since(start))
		return Result{Errors: errs}, nil
	}

	errs = s.validator.Fields(ctx, fields)
	errs = append(errs, s.validator.Files(map[string]*multipart.FileHeader{FileField: sub.File}, []string{FileField})...)
	if len(errs) > 0 {
		s.metrics.ObserveSubmission(metrics.OutcomeRejected, time.Since(start))
		return Result{Errors: errs}, nil
	}

	userID, err := s.persist(ctx, fields, sub.File)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeFailed, time.Since(start))
		return Result{}, err
	}

	s.metrics.ObserveSubmission(metrics.OutcomeAccepted, time.Since(start))
	s.metrics.AddStoredBytes(int(sub.File.Size))

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindApplicationReceived,
			Destination: fields[sanitize.FieldEmail],
			Body:        fmt.Sprintf("loan application %d received", userID),
		})
	}

	return Result{UserID: userID}, nil
}

func (s *Service) persist(ctx context.Context, fields map[string]string, fh *multipart.FileHeader) (int64, error) {
	tempPath, err := saveTemp(fh)
	if err != nil {
		return 0, fmt.Errorf("stage uploaded file: %w", err)
	}

	storedName, err := s.store.Store(ctx, storage.Upload{Name: fh.Filename, TempPath: tempPath})
	if err != nil {
		os.Remove(tempPath) // the store did not consume it
		return 0, err
	}

	// Validation already proved the amount parses positive.
	amount, err := strconv.ParseFloat(fields[sanitize.FieldLoanAmount], 64)
	if err != nil {
		return 0, fmt.Errorf("parse loan amount: %w", err)
	}

	user := &User{
		FullName:    fields[sanitize.FieldFullName],
		Email:       fields[sanitize.FieldEmail],
		PhoneNumber: fields[sanitize.FieldPhone],
	}
	user.AddLoan(Loan{Amount: amount})
	user.AddDocument(Document{Name: storedName})

	userID, err := s.repo.Save(ctx, user)
	if err != nil {
		return 0, err
	}

	s.logger.Info("application persisted",
		slog.Int64("user_id", userID),
		slog.String("document", storedName),
	)
	return userID, nil
}

// saveTemp spools the multipart upload to a temporary file; the storage
// service reads and removes it.
func saveTemp(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "loanform-upload-*")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
