package backend

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Profile is the /me payload.
type Profile struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type AmountRequest struct {
	Deliverables    []string `json:"deliverables"`
	EventName       string   `json:"eventName"`
	ClientName      string   `json:"clientName"`
	ClientContact   string   `json:"clientContact"`
	ClientEmail     string   `json:"clientEmail"`
	EventType       string   `json:"eventType"`
	Discount        string   `json:"discount"`
	StartTime       string   `json:"startTime"`
	EndTime         string   `json:"endTime"`
	AdditionalNotes string   `json:"additionalNotes"`
}

type AmountResult struct {
	Amount    *decimal.Decimal `json:"amount"`
	EventCode FlexString       `json:"event_code"`
}

// OfferRequest is the /generate-offer body.
type OfferRequest struct {
	Name            string `json:"name"`
	Position        string `json:"position"`
	Salary          string `json:"salary"`
	StartDate       string `json:"start_date"`
	Department      string `json:"department"`
	AdditionalNotes string `json:"additionalNotes"`
	FormData        any    `json:"formData"`
}

// OfferResult holds the members of a /generate-offer response that callers
// normalize. Every member is optional.
type OfferResult struct {
	ID               FlexString       `json:"id"`
	GeneratedID      FlexString       `json:"generatedId"`
	FormData         json.RawMessage  `json:"formData"`
	CalculatedSalary *decimal.Decimal `json:"calculated_salary"`
	Department       string           `json:"department"`
	JoiningDate      string           `json:"joiningDate"`
	TermDate         string           `json:"termDate"`
	Message          string           `json:"message"`
}

type UploadRequest struct {
	Image    string `json:"image"`
	FileName string `json:"fileName,omitempty"`
	Folder   string `json:"folder,omitempty"`
}

type UploadResult struct {
	URL      string `json:"url"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Document is a rendered PDF.
type Document struct {
	Data        []byte
	ContentType string
	// Filename comes from Content-Disposition when the backend sets one.
	Filename string
}

// FlexString accepts a JSON string or a bare scalar and keeps its text.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}

func (f FlexString) String() string { return string(f) }
