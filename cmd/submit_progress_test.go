package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitProgressShowsIndicatorThenIncident(t *testing.T) {
	model := newSubmitProgressModel(domain.Indicator{Type: domain.IndicatorTransactionID, Value: "TX-48213"}, nil)
	assert.Contains(t, model.View(), "Submitting transaction id indicator...")

	next, _ := model.Update(submitDoneMsg{submission: domain.Submission{IncidentID: "inc-42", Status: "processing"}})
	done, ok := next.(submitProgressModel)
	require.True(t, ok)
	assert.Contains(t, done.View(), "incident inc-42 opened")
}

func TestSubmitProgressHidesResultOnError(t *testing.T) {
	model := newSubmitProgressModel(domain.Indicator{Type: domain.IndicatorPhone}, nil)

	next, _ := model.Update(submitDoneMsg{err: errors.New("boom")})
	assert.Empty(t, next.View())
}

func TestRunSubmitProgressReturnsSubmission(t *testing.T) {
	submission, err := runSubmitProgress(context.Background(), &bytes.Buffer{}, domain.Indicator{Type: domain.IndicatorName}, func(context.Context) (domain.Submission, error) {
		return domain.Submission{IncidentID: "inc-9", Status: "processing"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentID("inc-9"), submission.IncidentID)
	assert.Equal(t, "processing", submission.Status)
}
