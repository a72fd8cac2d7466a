package domain

import (
	"time"

	"github.com/makstark/studio-web/internal/backend"
)

// Step is the New-Entry wizard position.
type Step string

const (
	StepForm       Step = "form"
	StepProcessing Step = "processing"
	StepReview     Step = "review"
)

// Number returns the 1-based step shown to the operator.
func (s Step) Number() int {
	switch s {
	case StepProcessing:
		return 2
	case StepReview:
		return 3
	}
	return 1
}

// Form is the project entry as captured from the operator and submitted
// unchanged to the backend.
type Form struct {
	ClientName        string   `json:"clientName" form:"clientName" validate:"required"`
	EventName         string   `json:"eventName" form:"eventName" validate:"required"`
	ClientContact     string   `json:"clientContact" form:"clientContact" validate:"required"`
	ClientEmail       string   `json:"clientEmail" form:"clientEmail"`
	EventStartDate    string   `json:"eventStartDate" form:"eventStartDate" validate:"required"`
	EventEndDate      string   `json:"eventEndDate" form:"eventEndDate" validate:"required"`
	InvoiceDate       string   `json:"invoiceDate" form:"invoiceDate" validate:"required"`
	EventType         string   `json:"eventType" form:"eventType" validate:"required"`
	Amount            string   `json:"amount" form:"amount" validate:"required"`
	Discount          string   `json:"discount" form:"discount"`
	Referral          string   `json:"referral" form:"referral"`
	EmpPointOfContact string   `json:"empPointOfContact" form:"empPointOfContact" validate:"required"`
	Deliverables      []string `json:"deliverables" form:"deliverables" validate:"min=1"`
	AdditionalNotes   string   `json:"additionalNotes" form:"additionalNotes"`
	EventCode         string   `json:"eventCode" form:"eventCode"`
}

// HasDeliverable reports whether d is selected.
func (f Form) HasDeliverable(d string) bool {
	for _, x := range f.Deliverables {
		if x == d {
			return true
		}
	}
	return false
}

// ProcessedEntry is the backend's computed supplement to a submitted Form.
type ProcessedEntry struct {
	ID                     backend.FlexString `json:"id"`
	FormData               *Form              `json:"formData,omitempty"`
	GeneratedInvoiceNumber backend.FlexString `json:"generatedInvoiceNumber"`
	TotalAmount            backend.FlexString `json:"totalAmount"`
	TaxAmount              backend.FlexString `json:"taxAmount"`
	FinalAmount            backend.FlexString `json:"finalAmount"`
	TermsAndConditions     string             `json:"termsAndConditions"`
	ProjectTimeline        string             `json:"projectTimeline"`
	EstimatedCompletion    string             `json:"estimatedCompletion"`
	Status                 string             `json:"status"`
}

// Wizard is one operator's New-Entry state.
type Wizard struct {
	Step      Step            `json:"step"`
	Form      Form            `json:"form"`
	Processed *ProcessedEntry `json:"processed,omitempty"`
	// PreviewOpen is set while a preview document is live and shown.
	PreviewOpen bool `json:"preview_open"`
	// ResetAt, when set, is the moment the wizard returns to an empty Form.
	ResetAt time.Time `json:"reset_at,omitempty"`
}

func NewWizard() *Wizard {
	return &Wizard{Step: StepForm, Form: Form{Deliverables: []string{}}}
}

// Expired reports whether the post-download reset is due at now.
func (w *Wizard) Expired(now time.Time) bool {
	return !w.ResetAt.IsZero() && !now.Before(w.ResetAt)
}
