package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/apperr"
	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/documents"
	"github.com/makstark/studio-web/internal/offer/domain"
	"github.com/makstark/studio-web/internal/offer/repository"
	"github.com/makstark/studio-web/internal/session"
)

const (
	defaultResetDelay = 800 * time.Millisecond
	pdfContentType    = "application/pdf"

	msgProcessFailed = "Failed to process entry"
	msgPDFFailed     = "Failed to generate PDF"
	msgEmptyPDF      = "Generated PDF is empty"
	msgNotProcessed  = "Process the offer before generating the PDF"
)

// Backend is the part of the backend API the offer flow calls.
type Backend interface {
	Status(ctx context.Context) (string, error)
	GenerateOffer(ctx context.Context, token string, req backend.OfferRequest) (*backend.OfferResult, error)
	GenerateOfferPDF(ctx context.Context, token string, payload any, preview bool) (*backend.Document, error)
}

type Documents interface {
	Put(ctx context.Context, sessionID string, kind documents.Kind, filename, contentType string, data []byte) (*documents.Document, error)
	Release(ctx context.Context, sessionID string, kind documents.Kind) error
}

type Option func(*OfferService)

func WithClock(now func() time.Time) Option {
	return func(s *OfferService) { s.now = now }
}

func WithResetDelay(d time.Duration) Option {
	return func(s *OfferService) { s.resetDelay = d }
}

func WithGuard(g *session.Guard) Option {
	return func(s *OfferService) { s.guard = g }
}

// OfferService drives the offer-letter generator.
type OfferService struct {
	repo       *repository.WizardRepository
	api        Backend
	docs       Documents
	guard      *session.Guard
	resetDelay time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

func NewOfferService(repo *repository.WizardRepository, api Backend, docs Documents, log logrus.FieldLogger, opts ...Option) *OfferService {
	s := &OfferService{
		repo:       repo,
		api:        api,
		docs:       docs,
		resetDelay: defaultResetDelay,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BackendStatus reports whether the backend root answers.
func (s *OfferService) BackendStatus(ctx context.Context) bool {
	if _, err := s.api.Status(ctx); err != nil {
		s.log.WithError(err).Warn("backend health check failed")
		return false
	}
	return true
}

// State returns the session's offer wizard, applying a due reset first.
func (s *OfferService) State(ctx context.Context, sessionID string) (*domain.Wizard, error) {
	w, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if w.Expired(s.now()) {
		w = domain.NewWizard()
		if err := s.repo.Save(ctx, sessionID, w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (s *OfferService) SaveDraft(ctx context.Context, sessionID string, form domain.Form) (*domain.Wizard, error) {
	w, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	w.Form = form
	return w, s.repo.Save(ctx, sessionID, w)
}

// Process sends the candidate to the backend and keeps the normalized offer.
func (s *OfferService) Process(ctx context.Context, sessionID, token string, form domain.Form) (*domain.Wizard, error) {
	unlock, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.process(ctx, sessionID, token, form)
}

func (s *OfferService) process(ctx context.Context, sessionID, token string, form domain.Form) (*domain.Wizard, error) {
	w, err := s.SaveDraft(ctx, sessionID, form)
	if err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	w.Step = domain.StepProcessing
	if err := s.repo.Save(ctx, sessionID, w); err != nil {
		return nil, err
	}

	res, err := s.api.GenerateOffer(ctx, token, backend.OfferRequest{
		Name:            form.CandidateName,
		Position:        form.Position,
		Salary:          form.CTC,
		StartDate:       form.StartDate,
		Department:      form.Dept,
		AdditionalNotes: form.AdditionalNotes,
		FormData:        form,
	})
	// the outcome is stored even if the caller has gone away
	persist := context.WithoutCancel(ctx)
	if err != nil {
		s.log.WithError(err).Warn("generate offer failed")
		w.Step = domain.StepForm
		if serr := s.repo.Save(persist, sessionID, w); serr != nil {
			return nil, serr
		}
		return nil, apperr.Wrap(apperr.KindBackend, backend.TextOr(err, msgProcessFailed), err)
	}

	processed, err := s.normalize(res, form)
	if err != nil {
		w.Step = domain.StepForm
		if serr := s.repo.Save(persist, sessionID, w); serr != nil {
			return nil, serr
		}
		return nil, err
	}
	w.Processed = processed
	w.Step = domain.StepReview
	if err := s.repo.Save(persist, sessionID, w); err != nil {
		return nil, err
	}
	return w, nil
}

// normalize fills the gaps in a backend offer from the submitted form.
func (s *OfferService) normalize(res *backend.OfferResult, form domain.Form) (*domain.Processed, error) {
	p := &domain.Processed{
		ID:          firstNonEmpty(res.ID.String(), res.GeneratedID.String(), "generated-id"),
		GeneratedID: firstNonEmpty(res.GeneratedID.String(), res.ID.String(), fmt.Sprintf("gen-%d", s.now().UnixMilli())),
		CTC:         form.CTC,
		Dept:        firstNonEmpty(res.Department, form.Dept),
		JoiningDate: firstNonEmpty(res.JoiningDate, form.StartDate),
		TermDate:    res.TermDate,
		Status:      "processed",
	}
	if res.CalculatedSalary != nil && !res.CalculatedSalary.IsZero() {
		p.CTC = res.CalculatedSalary.String()
	}

	if len(res.FormData) > 0 && string(res.FormData) != "null" {
		p.FormData = res.FormData
	} else {
		data, err := json.Marshal(form)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal offer form: %w", err)
		}
		p.FormData = data
	}
	return p, nil
}

// Preview processes the form and renders the offer inline, replacing the
// session's live offer preview.
func (s *OfferService) Preview(ctx context.Context, sessionID, token string, form domain.Form) (*documents.Document, error) {
	unlock, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := s.process(ctx, sessionID, token, form)
	if err != nil {
		return nil, err
	}

	doc, err := s.render(ctx, sessionID, token, w.Processed, documents.OfferPreview, true)
	if err != nil {
		return nil, err
	}
	w.PreviewOpen = true
	if err := s.repo.Save(ctx, sessionID, w); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *OfferService) ClosePreview(ctx context.Context, sessionID string) error {
	if err := s.docs.Release(ctx, sessionID, documents.OfferPreview); err != nil {
		return err
	}
	w, err := s.State(ctx, sessionID)
	if err != nil {
		return err
	}
	w.PreviewOpen = false
	return s.repo.Save(ctx, sessionID, w)
}

// Generate renders the final offer letter as the session's one-shot offer
// download and schedules the reset.
func (s *OfferService) Generate(ctx context.Context, sessionID, token string) (*documents.Document, error) {
	unlock, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if w.Processed == nil {
		return nil, apperr.New(apperr.KindValidation, msgNotProcessed)
	}

	doc, err := s.render(ctx, sessionID, token, w.Processed, documents.OfferDownload, false)
	if err != nil {
		return nil, err
	}
	w.ResetAt = s.now().Add(s.resetDelay)
	if err := s.repo.Save(ctx, sessionID, w); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *OfferService) Teardown(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

func (s *OfferService) render(ctx context.Context, sessionID, token string, p *domain.Processed, kind documents.Kind, preview bool) (*documents.Document, error) {
	payload, err := p.PDFPayload()
	if err != nil {
		return nil, fmt.Errorf("failed to build offer payload: %w", err)
	}

	pdf, err := s.api.GenerateOfferPDF(ctx, token, payload, preview)
	if errors.Is(err, backend.ErrEmptyDocument) {
		return nil, apperr.Wrap(apperr.KindEmptyResult, msgEmptyPDF, err)
	}
	if err != nil {
		s.log.WithError(err).WithField("preview", preview).Warn("offer pdf failed")
		return nil, apperr.Wrap(apperr.KindBackend, backend.TextOr(err, msgPDFFailed), err)
	}

	contentType := pdf.ContentType
	if contentType == "" {
		contentType = pdfContentType
	}
	return s.docs.Put(ctx, sessionID, kind, domain.DownloadName(payload), contentType, pdf.Data)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
