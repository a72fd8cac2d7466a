package domain

import (
	"encoding/json"
	"regexp"
	"time"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

type Step string

const (
	StepForm       Step = "form"
	StepProcessing Step = "processing"
	StepReview     Step = "review"
)

func (s Step) Number() int {
	switch s {
	case StepProcessing:
		return 2
	case StepReview:
		return 3
	}
	return 1
}

// Form is the offer candidate as entered by the operator.
type Form struct {
	CandidateName   string `json:"candidateName" form:"candidateName"`
	Position        string `json:"position" form:"position"`
	CTC             string `json:"ctc" form:"ctc"`
	StartDate       string `json:"startDate" form:"startDate"`
	Dept            string `json:"dept" form:"dept"`
	AdditionalNotes string `json:"additionalNotes" form:"additionalNotes"`
}

// Processed is the backend's offer metadata after normalization.
type Processed struct {
	ID          string          `json:"id"`
	FormData    json.RawMessage `json:"formData"`
	GeneratedID string          `json:"generatedId"`
	CTC         string          `json:"ctc"`
	Dept        string          `json:"dept"`
	JoiningDate string          `json:"joiningDate"`
	TermDate    string          `json:"termDate"`
	Status      string          `json:"status"`
}

// PDFPayload is formData with the processed id merged in, as the PDF
// endpoint expects it.
func (p *Processed) PDFPayload() (map[string]any, error) {
	out := map[string]any{}
	if len(p.FormData) > 0 {
		if err := json.Unmarshal(p.FormData, &out); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = map[string]any{}
	}
	out["id"] = p.ID
	return out, nil
}

// DownloadName is the offer letter filename for a PDF payload.
func DownloadName(payload map[string]any) string {
	name, _ := payload["candidateName"].(string)
	if name == "" {
		name = "offer"
	}
	return "Offer_Letter_" + whitespaceRun.ReplaceAllString(name, "_") + ".pdf"
}

type Wizard struct {
	Step        Step       `json:"step"`
	Form        Form       `json:"form"`
	Processed   *Processed `json:"processed,omitempty"`
	PreviewOpen bool       `json:"preview_open"`
	ResetAt     time.Time  `json:"reset_at,omitempty"`
}

func NewWizard() *Wizard {
	return &Wizard{Step: StepForm}
}

func (w *Wizard) Expired(now time.Time) bool {
	return !w.ResetAt.IsZero() && !now.Before(w.ResetAt)
}
