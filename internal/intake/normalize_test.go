package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jane dot doe at gmail dot com", "jane.doe@gmail.com"},
		{"  John@Example.COM. ", "john@example.com"},
		{"jane @ gmail . com", "jane@gmail.com"},
		{"a..b@x.com,", "a.b@x.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEmail(tt.in), tt.in)
	}
}

func TestParseProviders(t *testing.T) {
	assert.Equal(t,
		[]string{"Dr. Smith", "City PT", "Mercy ER"},
		ParseProviders("Dr. Smith, City PT and Mercy ER, Dr. Smith"))
	assert.Equal(t, []string{"Sandy Chiropractic"}, ParseProviders("Sandy Chiropractic"))
	assert.Empty(t, ParseProviders("  "))
}

func TestProvidersString(t *testing.T) {
	assert.Equal(t, "Dr. Smith, City PT", ProvidersString([]string{"Dr. Smith", " ", "City PT"}))
	assert.Equal(t, "", ProvidersString(nil))
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-04-18", NormalizeDate("04/18/2024"))
	assert.Equal(t, "2024-04-18", NormalizeDate("April 18, 2024"))
	assert.Equal(t, "last Friday", NormalizeDate("last Friday"))
}

func TestParseCount(t *testing.T) {
	n, ok := ParseCount(" 12 ")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	for _, in := range []string{"", "-3", "twelve", "3.5"} {
		_, ok := ParseCount(in)
		assert.False(t, ok, in)
	}
}

func TestNormalize(t *testing.T) {
	in := Draft{
		ClientName:          "  Jane Doe ",
		Email:               "Jane at Example dot com",
		IncidentDate:        "04/18/2024",
		TreatmentProviders:  []string{"City PT", " City PT ", ""},
		PainLevel:           features.IntPtr(14),
		DaysMissedWork:      features.IntPtr(-2),
		ClarificationNeeded: []string{"DOB?", "date of birth", "Ask about prior claims!!"},
	}

	out := Normalize(in)

	assert.Equal(t, "Jane Doe", out.ClientName)
	assert.Equal(t, "jane@example.com", out.Email)
	assert.Equal(t, "2024-04-18", out.IncidentDate)
	assert.Equal(t, []string{"City PT"}, out.TreatmentProviders)
	assert.Equal(t, 10, *out.PainLevel)
	assert.Equal(t, 0, *out.DaysMissedWork)
	assert.Equal(t, []string{AskDateOfBirth, "ask about prior claims"}, out.ClarificationNeeded)

	assert.Equal(t, 14, *in.PainLevel, "input is not mutated")
}

func TestCanonicalizeClarification(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DOB?", AskDateOfBirth},
		{"date_of_birth", AskDateOfBirth},
		{"Estimated case value.", AskEstimatedValue},
		{"estimated_value", AskEstimatedValue},
		{"E-mail", AskEmail},
		{"What is the client's phone number", AskPhone},
		{"Date of incident", AskIncidentDate},
		{"incident_date", AskIncidentDate},
		{"What happened?", AskIncidentDescription},
		{"insurance company", AskInsuranceProvider},
		{"Insurance policy number", AskPolicyNumber},
		{"workplace", AskEmployer},
		{"client_name", AskClientName},
		{"Which injuries", AskInjuries},
		{"any doctor visits", AskTreatment},
		{"pain scale", AskPainLevel},
		{"time off", AskDaysMissed},
		{"Where did it occur", AskLocation},
		{"incident_year", "incident_year"},
		{"  Prior   Claims!! ", "prior claims"},
		{" ,. ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalizeClarification(tt.in))
		})
	}
}

func TestCanonicalizeClarifications(t *testing.T) {
	got := CanonicalizeClarifications([]string{"dob", "", "Email", "date of birth", "e-mail."})
	assert.Equal(t, []string{AskDateOfBirth, AskEmail}, got)

	assert.NotNil(t, CanonicalizeClarifications(nil))
	assert.Empty(t, CanonicalizeClarifications(nil))
}
