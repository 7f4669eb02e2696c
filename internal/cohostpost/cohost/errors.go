package cohost

import (
	"errors"
	"fmt"
)

var (
	// ErrLoginFailed matches every *LoginError.
	ErrLoginFailed = errors.New("cohost: failed to log in")
	// ErrNotAuthenticated is returned when publishing without a session.
	ErrNotAuthenticated = errors.New("cohost: not logged in")
	// ErrDisabled is returned by a service whose feature flag is off or whose credentials are missing.
	ErrDisabled = errors.New("cohost: integration disabled")
)

// Step names the publish stage that failed. Each Step is itself an error so
// callers can test for it with errors.Is.
type Step string

const (
	DraftCreateFailed      Step = "postCreate"
	AttachmentStartFailed  Step = "attachmentStart"
	UploadFailed           Step = "upload"
	AttachmentFinishFailed Step = "attachmentFinish"
	PostUpdateFailed       Step = "postUpdate"
)

func (s Step) Error() string { return string(s) + " failed" }

// StepError is a publish failure. Diagnostic holds the raw server payload
// when there was one; Err holds the transport error when there was one.
type StepError struct {
	Step       Step
	Diagnostic string
	Err        error
}

func (e *StepError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", string(e.Step), e.Err)
	case e.Diagnostic != "":
		return fmt.Sprintf("%s:%s", string(e.Step), e.Diagnostic)
	default:
		return e.Step.Error()
	}
}

func (e *StepError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Step, e.Err}
	}
	return []error{e.Step}
}

// LoginError reports a login response that lacked an expected field.
type LoginError struct {
	Stage      string
	Diagnostic string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("cohost: failed to log in (%s): %s", e.Stage, e.Diagnostic)
}

func (e *LoginError) Unwrap() error { return ErrLoginFailed }
