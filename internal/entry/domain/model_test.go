package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makstark/studio-web/internal/apperr"
)

func completeForm() Form {
	return Form{
		ClientName:        "Asha Rao",
		EventName:         "Rao Wedding",
		ClientContact:     "9876543210",
		EventStartDate:    "2025-02-01",
		EventEndDate:      "2025-02-02",
		InvoiceDate:       "2025-01-15",
		EventType:         "Wedding Photography",
		Amount:            "50000",
		EmpPointOfContact: "Mak",
		Deliverables:      []string{"Photography (Basic)"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("complete form passes", func(t *testing.T) {
		assert.NoError(t, completeForm().Validate())
	})

	t.Run("lists exactly the missing fields", func(t *testing.T) {
		f := completeForm()
		f.ClientName = ""
		f.Amount = ""
		f.Deliverables = nil

		err := f.Validate()
		require.Error(t, err)

		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.KindValidation, ae.Kind)
		assert.Equal(t, []string{"clientName", "amount", "deliverables"}, ae.Fields)
		assert.Equal(t, "Please fill in all required fields: clientName, amount, deliverables", ae.Message)
	})

	t.Run("optional fields are not required", func(t *testing.T) {
		f := completeForm()
		f.ClientEmail = ""
		f.Discount = ""
		f.Referral = ""
		f.AdditionalNotes = ""
		f.EventCode = ""
		assert.NoError(t, f.Validate())
	})

	t.Run("empty deliverables slice is missing", func(t *testing.T) {
		f := completeForm()
		f.Deliverables = []string{}
		var ae *apperr.Error
		require.ErrorAs(t, f.Validate(), &ae)
		assert.Equal(t, []string{"deliverables"}, ae.Fields)
	})
}

func TestHasDeliverable(t *testing.T) {
	f := Form{Deliverables: []string{"A", "C"}}
	assert.True(t, f.HasDeliverable("C"))
	assert.False(t, f.HasDeliverable("B"))
}

func TestWizardExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	w := NewWizard()
	assert.False(t, w.Expired(now))

	w.ResetAt = now.Add(2 * time.Second)
	assert.False(t, w.Expired(now.Add(time.Second)))
	assert.True(t, w.Expired(now.Add(2*time.Second)))
}

func TestStepNumber(t *testing.T) {
	assert.Equal(t, 1, StepForm.Number())
	assert.Equal(t, 2, StepProcessing.Number())
	assert.Equal(t, 3, StepReview.Number())
}
