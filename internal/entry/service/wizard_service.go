package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/apperr"
	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/datastore"
	"github.com/makstark/studio-web/internal/documents"
	"github.com/makstark/studio-web/internal/entry/domain"
	"github.com/makstark/studio-web/internal/entry/repository"
	"github.com/makstark/studio-web/internal/session"
)

const (
	defaultResetDelay = 2 * time.Second
	pdfContentType    = "application/pdf"

	msgCalculateFailed = "Calculation failed"
	msgPreviewFailed   = "Failed to generate preview"
	msgEmptyPDF        = "Generated PDF is empty"
	msgProcessFailed   = "Failed to process entry"
	msgConfirmFailed   = "Error generating PDF. Please try again."
	msgNotReviewing    = "Process the entry before generating the PDF"
	msgAwaitingConfirm = "This entry is awaiting confirmation. Go back to edit it first."
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Backend is the part of the backend API the wizard calls.
type Backend interface {
	CalculateAmount(ctx context.Context, token string, req backend.AmountRequest) (*backend.AmountResult, error)
	ProcessEntry(ctx context.Context, token string, form any, out any) error
	GenerateEntryPDF(ctx context.Context, token string, form any, preview bool) (*backend.Document, error)
}

// Documents holds the PDFs the wizard hands to the browser.
type Documents interface {
	Put(ctx context.Context, sessionID string, kind documents.Kind, filename, contentType string, data []byte) (*documents.Document, error)
	Release(ctx context.Context, sessionID string, kind documents.Kind) error
}

// ProjectRecorder logs confirmed entries.
type ProjectRecorder interface {
	InsertProject(ctx context.Context, p *datastore.Project) error
}

type Option func(*WizardService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *WizardService) { s.now = now }
}

// WithResetDelay sets how long after a download the wizard returns to an
// empty form.
func WithResetDelay(d time.Duration) Option {
	return func(s *WizardService) { s.resetDelay = d }
}

// WithGuard serializes Process and Confirm per session. Without it no lock
// is taken.
func WithGuard(g *session.Guard) Option {
	return func(s *WizardService) { s.guard = g }
}

// WithRecorder records every confirmed entry. Recording failures are logged
// only.
func WithRecorder(r ProjectRecorder) Option {
	return func(s *WizardService) { s.recorder = r }
}

// WizardService drives the New-Entry wizard.
type WizardService struct {
	repo       *repository.WizardRepository
	api        Backend
	docs       Documents
	recorder   ProjectRecorder
	guard      *session.Guard
	resetDelay time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewWizardService creates a new wizard service
func NewWizardService(repo *repository.WizardRepository, api Backend, docs Documents, log logrus.FieldLogger, opts ...Option) *WizardService {
	s := &WizardService{
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

// State returns the session's wizard, applying a due reset first.
func (s *WizardService) State(ctx context.Context, sessionID string) (*domain.Wizard, error) {
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
	if w.Step == domain.StepProcessing {
		if err := s.recoverProcessing(ctx, sessionID, w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// recoverProcessing returns a Processing wizard to Form when no Process call
// holds the session's guard, which happens when a request dies mid-flight.
func (s *WizardService) recoverProcessing(ctx context.Context, sessionID string, w *domain.Wizard) error {
	if s.guard == nil {
		return nil
	}
	unlock, err := s.guard.Acquire(ctx, sessionID)
	if apperr.Is(err, apperr.KindBusy) {
		return nil
	}
	if err != nil {
		return err
	}
	defer unlock()

	s.log.WithField("session_id", sessionID).Warn("recovering abandoned entry processing")
	w.Step = domain.StepForm
	return s.repo.Save(ctx, sessionID, w)
}

// SaveDraft stores the operator's edits without running any action.
func (s *WizardService) SaveDraft(ctx context.Context, sessionID string, form domain.Form) (*domain.Wizard, error) {
	w, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if w.Step == domain.StepForm {
		w.Form = form
	}
	return w, s.repo.Save(ctx, sessionID, w)
}

// Calculate asks the backend to price the form and writes the amount and
// event code back into it. It returns the amount as shown to the operator.
func (s *WizardService) Calculate(ctx context.Context, sessionID, token string, form domain.Form) (string, error) {
	w, err := s.SaveDraft(ctx, sessionID, form)
	if err != nil {
		return "", err
	}

	res, err := s.api.CalculateAmount(ctx, token, backend.AmountRequest{
		Deliverables:    form.Deliverables,
		EventName:       form.EventName,
		ClientName:      form.ClientName,
		ClientContact:   form.ClientContact,
		ClientEmail:     form.ClientEmail,
		EventType:       form.EventType,
		Discount:        form.Discount,
		StartTime:       form.EventStartDate,
		EndTime:         form.EventEndDate,
		AdditionalNotes: form.AdditionalNotes,
	})
	if err != nil {
		s.log.WithError(err).Warn("calculate amount failed")
		return "", apperr.Wrap(apperr.KindBackend, backend.DetailOr(err, msgCalculateFailed), err)
	}

	amount := ""
	if res.Amount != nil {
		amount = res.Amount.String()
	}
	w.Form.Amount = amount
	w.Form.EventCode = res.EventCode.String()
	if err := s.repo.Save(ctx, sessionID, w); err != nil {
		return "", err
	}
	return amount, nil
}

// Preview renders the form as a preview PDF and makes it the session's live
// entry preview. The wizard step does not change.
func (s *WizardService) Preview(ctx context.Context, sessionID, token string, form domain.Form) (*documents.Document, error) {
	w, err := s.SaveDraft(ctx, sessionID, form)
	if err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	pdf, err := s.api.GenerateEntryPDF(ctx, token, form, true)
	if errors.Is(err, backend.ErrEmptyDocument) {
		return nil, apperr.Wrap(apperr.KindEmptyResult, msgEmptyPDF, err)
	}
	if err != nil {
		s.log.WithError(err).Warn("entry preview failed")
		return nil, apperr.Wrap(apperr.KindBackend, backend.TextOr(err, msgPreviewFailed), err)
	}

	filename := fmt.Sprintf("ProjectDetails_%s_%d.pdf", whitespaceRun.ReplaceAllString(form.ClientName, "_"), s.now().UnixMilli())
	doc, err := s.docs.Put(ctx, sessionID, documents.EntryPreview, filename, contentTypeOf(pdf), pdf.Data)
	if err != nil {
		return nil, err
	}

	w.PreviewOpen = true
	if err := s.repo.Save(ctx, sessionID, w); err != nil {
		return nil, err
	}
	return doc, nil
}

// ClosePreview closes the viewer and releases the preview document.
func (s *WizardService) ClosePreview(ctx context.Context, sessionID string) error {
	if err := s.docs.Release(ctx, sessionID, documents.EntryPreview); err != nil {
		return err
	}
	w, err := s.State(ctx, sessionID)
	if err != nil {
		return err
	}
	w.PreviewOpen = false
	return s.repo.Save(ctx, sessionID, w)
}

// Process submits the form for processing. On success the wizard moves to
// Review holding the processed entry; on failure it returns to Form.
func (s *WizardService) Process(ctx context.Context, sessionID, token string, form domain.Form) (*domain.Wizard, error) {
	unlock, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if w.Step == domain.StepReview {
		return nil, apperr.New(apperr.KindValidation, msgAwaitingConfirm)
	}

	w.Form = form
	if err := form.Validate(); err != nil {
		w.Step = domain.StepForm
		if serr := s.repo.Save(ctx, sessionID, w); serr != nil {
			return nil, serr
		}
		return nil, err
	}

	w.Step = domain.StepProcessing
	if err := s.repo.Save(ctx, sessionID, w); err != nil {
		return nil, err
	}

	// the outcome is stored even if the caller has gone away
	persist := context.WithoutCancel(ctx)

	var processed domain.ProcessedEntry
	if err := s.api.ProcessEntry(ctx, token, form, &processed); err != nil {
		s.log.WithError(err).Warn("process entry failed")
		w.Step = domain.StepForm
		if serr := s.repo.Save(persist, sessionID, w); serr != nil {
			return nil, serr
		}
		return nil, apperr.Wrap(apperr.KindBackend, backend.ErrorOrDetail(err, msgProcessFailed), err)
	}

	w.Processed = &processed
	w.Step = domain.StepReview
	if err := s.repo.Save(persist, sessionID, w); err != nil {
		return nil, err
	}
	return w, nil
}

// BackToEdit leaves Review for Form, discarding the processed entry.
func (s *WizardService) BackToEdit(ctx context.Context, sessionID string) (*domain.Wizard, error) {
	w, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	w.Step = domain.StepForm
	w.Processed = nil
	return w, s.repo.Save(ctx, sessionID, w)
}

// Confirm renders the final PDF for the processed entry and stores it as the
// session's one-shot entry download. The wizard resets once the reset delay
// has passed.
func (s *WizardService) Confirm(ctx context.Context, sessionID, token string) (*documents.Document, error) {
	unlock, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if w.Step != domain.StepReview || w.Processed == nil {
		return nil, apperr.New(apperr.KindValidation, msgNotReviewing)
	}

	payload := w.Form
	if w.Processed.FormData != nil {
		payload = *w.Processed.FormData
	}

	pdf, err := s.api.GenerateEntryPDF(ctx, token, payload, false)
	if err != nil {
		s.log.WithError(err).Warn("entry pdf failed")
		return nil, apperr.Wrap(apperr.KindBackend, msgConfirmFailed, err)
	}

	invoice := w.Processed.GeneratedInvoiceNumber.String()
	doc, err := s.docs.Put(ctx, sessionID, documents.EntryDownload, invoice+"_ProjectDetails.pdf", contentTypeOf(pdf), pdf.Data)
	if err != nil {
		return nil, err
	}

	w.ResetAt = s.now().Add(s.resetDelay)
	if err := s.repo.Save(ctx, sessionID, w); err != nil {
		return nil, err
	}

	s.record(ctx, payload, w.Processed)
	return doc, nil
}

// Teardown drops the session's wizard. It matches session.TeardownFunc.
func (s *WizardService) Teardown(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

func (s *WizardService) record(ctx context.Context, form domain.Form, p *domain.ProcessedEntry) {
	if s.recorder == nil {
		return
	}

	amount := p.FinalAmount.String()
	if amount == "" {
		amount = form.Amount
	}
	project := &datastore.Project{
		Name:         form.EventName,
		ClientName:   form.ClientName,
		EventType:    form.EventType,
		EventCode:    form.EventCode,
		InvoiceNo:    p.GeneratedInvoiceNumber.String(),
		Amount:       amount,
		Deliverables: form.Deliverables,
	}
	if err := s.recorder.InsertProject(ctx, project); err != nil {
		s.log.WithError(err).WithField("invoice_number", project.InvoiceNo).Error("failed to record project")
		return
	}
	s.log.WithField("project_id", project.ID).Info("project recorded")
}

func contentTypeOf(d *backend.Document) string {
	if d.ContentType != "" {
		return d.ContentType
	}
	return pdfContentType
}
