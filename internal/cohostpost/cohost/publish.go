package cohost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/blacktop/cohostpost/internal/cohostpost"
	"github.com/blacktop/cohostpost/internal/formdata"
	"github.com/blacktop/cohostpost/internal/logutil"
	"github.com/google/uuid"
)

// placeholderAttachmentID fills the attachment block of a fresh draft.
var placeholderAttachmentID = uuid.Nil.String()

type postInput struct {
	ProjectHandle string      `json:"projectHandle"`
	PostID        int64       `json:"postId,omitempty"`
	Content       postContent `json:"content"`
}

type postContent struct {
	PostState    int      `json:"postState"`
	Headline     string   `json:"headline"`
	AdultContent bool     `json:"adultContent"`
	Blocks       []block  `json:"blocks"`
	CWs          []string `json:"cws"`
	Tags         []string `json:"tags"`
}

type block struct {
	Type       string          `json:"type"`
	Attachment attachmentBlock `json:"attachment"`
}

type attachmentBlock struct {
	AttachmentID string `json:"attachmentId"`
	AltText      string `json:"altText"`
}

type attachmentStartInput struct {
	ProjectHandle string `json:"projectHandle"`
	PostID        int64  `json:"postId"`
	Filename      string `json:"filename"`
	ContentType   string `json:"contentType"`
	ContentLength int    `json:"contentLength"`
}

type attachmentStartData struct {
	AttachmentID   string          `json:"attachmentId"`
	RequiredFields formdata.Fields `json:"requiredFields"`
}

type attachmentFinishInput struct {
	ProjectHandle string `json:"projectHandle"`
	PostID        int64  `json:"postId"`
	AttachmentID  string `json:"attachmentId"`
}

func newDraft(handle string, req cohostpost.Request) postInput {
	return postInput{
		ProjectHandle: handle,
		Content: postContent{
			PostState:    1,
			Headline:     req.Name,
			AdultContent: req.Adult,
			Blocks: []block{{
				Type: "attachment",
				Attachment: attachmentBlock{
					AttachmentID: placeholderAttachmentID,
					AltText:      req.AltText,
				},
			}},
			CWs:  nonNil(req.ContentWarning),
			Tags: nonNil(req.Tags),
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// publishRun carries the per-call state of one Publish.
type publishRun struct {
	c      *Client
	cookie string
	req    cohostpost.Request
	result Result
}

func (r *publishRun) advance(s State) {
	r.result.State = s
	r.result.Reached = s
	logutil.Debugf("publish %s: state=%s post_id=%d attachment_id=%s", r.req.Name, s, r.result.PostID, r.result.AttachmentID)
}

func (r *publishRun) fail(err error) (Result, error) {
	r.result.State = Failed
	r.result.Err = err
	return r.result, err
}

// Publish creates a draft, uploads the file as its attachment and finalizes
// the post. It stops at the first failing step; a draft created before the
// failure is left on the server.
func (c *Client) Publish(ctx context.Context, sess *Session, req cohostpost.Request) (Result, error) {
	run := &publishRun{c: c, req: req}

	cookie, ok := sess.Cookie()
	if !ok {
		return run.fail(ErrNotAuthenticated)
	}
	run.cookie = cookie

	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return run.fail(cohostpost.ValidationError{Provider: cohostpost.ProviderName, Reason: fmt.Sprintf("file %q not found", req.FilePath)})
		}
		return run.fail(fmt.Errorf("read file: %w", err))
	}

	draft := newDraft(c.handle, req)

	postID, err := run.createDraft(ctx, draft)
	if err != nil {
		return run.fail(err)
	}
	run.result.PostID = postID
	run.advance(DraftCreated)

	start, err := run.startAttachment(ctx, postID, len(data))
	if err != nil {
		return run.fail(err)
	}
	run.result.AttachmentID = start.AttachmentID
	run.advance(AttachmentRequested)

	if err := run.upload(ctx, start.RequiredFields, data); err != nil {
		return run.fail(err)
	}
	run.advance(Uploaded)

	if err := run.finishAttachment(ctx, postID, start.AttachmentID); err != nil {
		return run.fail(err)
	}
	run.advance(AttachmentConfirmed)

	draft.PostID = postID
	draft.Content.Blocks[0].Attachment.AttachmentID = start.AttachmentID
	if err := run.updatePost(ctx, draft); err != nil {
		return run.fail(err)
	}
	run.advance(PostFinalized)

	return run.result, nil
}

func (r *publishRun) createDraft(ctx context.Context, draft postInput) (int64, error) {
	resp, err := r.c.api.Mutate(ctx, "posts.create", draft, r.cookie)
	if err != nil {
		return 0, &StepError{Step: DraftCreateFailed, Err: err}
	}

	var created struct {
		PostID int64 `json:"postId"`
	}
	if err := resp.Decode(&created); err != nil || created.PostID == 0 {
		return 0, &StepError{Step: DraftCreateFailed, Diagnostic: resp.String()}
	}
	return created.PostID, nil
}

func (r *publishRun) startAttachment(ctx context.Context, postID int64, size int) (attachmentStartData, error) {
	resp, err := r.c.api.Mutate(ctx, "posts.attachment.start", attachmentStartInput{
		ProjectHandle: r.c.handle,
		PostID:        postID,
		Filename:      r.req.Name,
		ContentType:   r.req.MimeType,
		ContentLength: size,
	}, r.cookie)
	if err != nil {
		return attachmentStartData{}, &StepError{Step: AttachmentStartFailed, Err: err}
	}

	var start attachmentStartData
	if err := resp.Decode(&start); err != nil || start.AttachmentID == "" || start.AttachmentID == placeholderAttachmentID || start.RequiredFields == nil {
		return attachmentStartData{}, &StepError{Step: AttachmentStartFailed, Diagnostic: resp.String()}
	}
	return start, nil
}

func (r *publishRun) upload(ctx context.Context, fields formdata.Fields, data []byte) error {
	form, err := formdata.NewBuilder()
	if err != nil {
		return &StepError{Step: UploadFailed, Err: err}
	}
	form.WriteFields(fields)
	if err := form.WriteFile("file", r.req.Name, r.req.MimeType, data); err != nil {
		return &StepError{Step: UploadFailed, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.c.uploadURL, bytes.NewReader(form.Bytes()))
	if err != nil {
		return &StepError{Step: UploadFailed, Err: err}
	}
	httpReq.Header.Set("Content-Type", form.ContentType())
	if r.c.userAgent != "" {
		httpReq.Header.Set("User-Agent", r.c.userAgent)
	}

	logutil.Debugf("uploading attachment: bytes=%d fields=%d", len(data), len(fields))
	resp, err := r.c.http.Do(httpReq)
	if err != nil {
		return &StepError{Step: UploadFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return &StepError{Step: UploadFailed, Diagnostic: string(body)}
	}
	return nil
}

func (r *publishRun) finishAttachment(ctx context.Context, postID int64, attachmentID string) error {
	resp, err := r.c.api.Mutate(ctx, "posts.attachment.finish", attachmentFinishInput{
		ProjectHandle: r.c.handle,
		PostID:        postID,
		AttachmentID:  attachmentID,
	}, r.cookie)
	if err != nil {
		return &StepError{Step: AttachmentFinishFailed, Err: err}
	}

	var finish struct {
		AttachmentID string `json:"attachmentId"`
	}
	if err := resp.Decode(&finish); err != nil || finish.AttachmentID == "" {
		return &StepError{Step: AttachmentFinishFailed, Diagnostic: resp.String()}
	}
	if finish.AttachmentID != attachmentID {
		logutil.Warnf("attachment finish returned a different id: requested=%s confirmed=%s", attachmentID, finish.AttachmentID)
	}
	return nil
}

func (r *publishRun) updatePost(ctx context.Context, draft postInput) error {
	resp, err := r.c.api.Mutate(ctx, "posts.update", draft, r.cookie)
	if err != nil {
		return &StepError{Step: PostUpdateFailed, Err: err}
	}
	if !resp.OK() {
		return &StepError{Step: PostUpdateFailed, Diagnostic: resp.String()}
	}
	return nil
}
