package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func fields(errs ValidationErrors) []string {
	var out []string
	for _, err := range errs {
		out = append(out, err.Field)
	}
	return out
}

func TestValidateCreateComplaint(t *testing.T) {
	id := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		req    CreateComplaintRequest
		fields []string
	}{
		{
			name: "valid",
			req: CreateComplaintRequest{
				Category: "complaint_late_arrival", Subject: "Late", Description: "Two hours late",
				BookingID: id, ComplaintAgainstID: id,
			},
		},
		{
			name: "not a complaint category",
			req: CreateComplaintRequest{
				Category: "faq", Subject: "Late", Description: "Two hours late",
				BookingID: id, ComplaintAgainstID: id,
			},
			fields: []string{"Category"},
		},
		{
			name: "bad ids and markup only subject",
			req: CreateComplaintRequest{
				Category: "complaint_overcharging", Subject: "<b></b>", Description: "Charged twice",
				BookingID: "123", ComplaintAgainstID: id,
			},
			fields: []string{"Subject", "BookingID"},
		},
		{
			name: "evidence must be urls",
			req: CreateComplaintRequest{
				Category: "complaint_poor_service", Subject: "Bad", Description: "Left early",
				BookingID: id, ComplaintAgainstID: id, EvidenceURLs: []string{"not a url"},
			},
			fields: []string{"EvidenceURLs[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateCreateComplaint(&tt.req)
			assert.ElementsMatch(t, tt.fields, fields(errs))
		})
	}
}

func TestValidateCreateTicket_ComplaintNeedsParties(t *testing.T) {
	errs := ValidateCreateTicket(&CreateTicketRequest{
		Category:    "service_dispute",
		Subject:     "Dispute",
		Description: "The job was not done",
		IsComplaint: true,
	})

	details := errs.ToMap()
	assert.Contains(t, details, "complaint_against_id")
	assert.Contains(t, details, "booking_id")
}

func TestValidateResolveComplaint(t *testing.T) {
	amount := 250.0
	zero := 0.0

	errs := ValidateResolveComplaint(&ResolveComplaintRequest{Result: "refund_partial", Notes: "Half done"})
	assert.Equal(t, []string{"refund_amount"}, fields(errs))

	errs = ValidateResolveComplaint(&ResolveComplaintRequest{Result: "refund_partial", Notes: "Half done", RefundAmount: &amount})
	assert.Empty(t, errs)

	errs = ValidateResolveComplaint(&ResolveComplaintRequest{Result: "penalty_provider", Notes: "Warning only", PenaltyAmount: &zero})
	assert.Empty(t, errs)

	errs = ValidateResolveComplaint(&ResolveComplaintRequest{Result: "refund_everything", Notes: "x"})
	assert.Equal(t, []string{"Result"}, fields(errs))
}

func TestSanitizeAndParse(t *testing.T) {
	assert.Equal(t, "UPI123", SanitizeInput("  <script>UPI123</script> "))

	id, err := ParseObjectID("")
	assert.NoError(t, err)
	assert.Nil(t, id)

	_, err = ParseObjectID("xyz")
	assert.ErrorIs(t, err, ErrInvalidObjectID)
}
