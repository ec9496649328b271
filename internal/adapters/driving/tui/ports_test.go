package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (*Ports)(nil).Validate(), ErrMissingAnswerService)
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingAnswerService)
	assert.ErrorIs(t, (&Ports{Answers: &stubAnswers{}}).Validate(), ErrMissingSettingsService)
	assert.NoError(t, (&Ports{Answers: &stubAnswers{}, Settings: newSettings()}).Validate())
}
