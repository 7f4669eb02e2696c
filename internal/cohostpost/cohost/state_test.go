package cohost

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "post-finalized", PostFinalized.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{Idle, DraftCreated, AttachmentRequested, Uploaded, AttachmentConfirmed} {
		assert.False(t, s.Terminal(), s.String())
	}
	assert.True(t, PostFinalized.Terminal())
	assert.True(t, Failed.Terminal())
}

func TestStepErrorMatching(t *testing.T) {
	err := error(&StepError{Step: UploadFailed, Err: io.ErrUnexpectedEOF})
	assert.True(t, errors.Is(err, UploadFailed))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, PostUpdateFailed))
	assert.Equal(t, "upload: unexpected EOF", err.Error())

	diag := &StepError{Step: DraftCreateFailed, Diagnostic: `[{"error":{}}]`}
	assert.Equal(t, `postCreate:[{"error":{}}]`, diag.Error())
	assert.Equal(t, "attachmentFinish failed", (&StepError{Step: AttachmentFinishFailed}).Error())
}

func TestLoginErrorMatching(t *testing.T) {
	err := error(&LoginError{Stage: "getSalt", Diagnostic: "[]"})
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.NotErrorIs(t, err, ErrNotAuthenticated)
}
