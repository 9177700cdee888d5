package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProjectScope(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	scope, err := NewProjectScope(
		[]string{"launch", " launch ", "", "beta"},
		[]string{"a@x.com", "A@X.com", "b@x.com"},
		start, end, 0,
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"launch", "beta"}, scope.Keywords)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, scope.Participants)
	assert.Equal(t, DefaultResultCap, scope.ResultCap)
}

func TestNewProjectScope_Invalid(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end time.Time
		cap        int
	}{
		{"start after end", start.Add(time.Hour), start, 10},
		{"missing end", start, time.Time{}, 10},
		{"negative cap", start, start, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProjectScope(nil, nil, tt.start, tt.end, tt.cap)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.End))
	assert.True(t, r.Contains(r.Start.Add(24*time.Hour)))
	assert.False(t, r.Contains(r.End.Add(time.Nanosecond)))
	assert.False(t, r.Contains(r.Start.Add(-time.Nanosecond)))
}

func TestCaseStudyRequest_Validate(t *testing.T) {
	scope, err := NewProjectScope(nil, nil, time.Now().Add(-time.Hour), time.Now(), 10)
	require.NoError(t, err)

	valid := CaseStudyRequest{UserID: "u", ModelName: "gpt-4", Scope: scope}
	assert.NoError(t, valid.Validate())

	noUser := valid
	noUser.UserID = " "
	assert.ErrorIs(t, noUser.Validate(), ErrInvalidInput)

	custom := valid
	custom.Template = TemplateCustom
	assert.ErrorIs(t, custom.Validate(), ErrInvalidInput)
	custom.CustomInstructions = "focus on cost"
	assert.NoError(t, custom.Validate())
}
