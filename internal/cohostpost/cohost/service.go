package cohost

import (
	"context"
	"errors"
	"sync"

	"github.com/blacktop/cohostpost/internal/cohostpost"
	"github.com/blacktop/cohostpost/internal/config"
	"github.com/blacktop/cohostpost/internal/logutil"
)

// DoneFunc is invoked exactly once when a publish call ends, whether or not
// it succeeded. Inspect Result.OK to tell the two apart.
type DoneFunc func(Result)

// Service is the cohost integration as seen by the rest of the process.
type Service struct {
	cfg     config.Config
	client  *Client
	enabled bool

	mu      sync.RWMutex
	session *Session
}

// New builds the service. A config with the feature flag off produces a
// disabled no-op service. Missing credentials are logged and also leave the
// service disabled; the MissingEnvError is returned alongside it.
func New(cfg config.Config) (*Service, error) {
	return newService(cfg, NewClient(cfg))
}

func newService(cfg config.Config, client *Client) (*Service, error) {
	s := &Service{cfg: cfg, client: client}
	if !cfg.Use {
		return s, nil
	}

	if err := cfg.Validate(); err != nil {
		var envErr cohostpost.MissingEnvError
		if errors.As(err, &envErr) {
			for _, v := range envErr.Variables {
				switch v {
				case config.EnvPassword:
					logutil.Errorf("missing cohost password")
				case config.EnvEmail:
					logutil.Errorf("missing cohost email")
				}
			}
		}
		return s, err
	}

	s.enabled = true
	return s, nil
}

// Name identifies the provider.
func (s *Service) Name() string { return cohostpost.ProviderName }

// Enabled reports whether the integration is switched on and configured.
func (s *Service) Enabled() bool { return s.enabled }

// Session returns the current session, nil before the first login.
func (s *Service) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Authenticate logs in with the configured credentials and replaces the
// current session on success.
func (s *Service) Authenticate(ctx context.Context) error {
	if !s.enabled {
		return ErrDisabled
	}

	sess, err := s.client.Authenticate(ctx, s.cfg.Email, s.cfg.Password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	return nil
}

// Publish posts req and invokes done exactly once with the outcome. done
// may be nil. Failures are logged with the file name and diagnostic.
func (s *Service) Publish(ctx context.Context, req cohostpost.Request, done DoneFunc) Result {
	var res Result
	if !s.enabled {
		res = Result{State: Failed, Err: ErrDisabled}
	} else {
		res, _ = s.client.Publish(ctx, s.Session(), req)
	}

	if res.Err != nil {
		logFailure(req, res)
	} else {
		logutil.Infof("posted %s: post_id=%d attachment_id=%s", req.Name, res.PostID, res.AttachmentID)
	}

	if done != nil {
		done(res)
	}
	return res
}

// PublishAsync runs Publish on its own goroutine. The channel receives
// exactly one Result and is then closed.
func (s *Service) PublishAsync(ctx context.Context, req cohostpost.Request) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		s.Publish(ctx, req, func(r Result) { ch <- r })
	}()
	return ch
}

// Post implements cohostpost.Poster.
func (s *Service) Post(ctx context.Context, req cohostpost.Request) error {
	return s.Publish(ctx, req, nil).Err
}

func logFailure(req cohostpost.Request, res Result) {
	var stepErr *StepError
	if errors.As(res.Err, &stepErr) {
		logutil.Error("failed to post", "file", req.Name, "step", string(stepErr.Step), "reached", res.Reached.String(), "response", stepErr.Diagnostic, "err", stepErr.Err)
		return
	}
	logutil.Error("failed to post", "file", req.Name, "err", res.Err)
}

var _ cohostpost.Poster = (*Service)(nil)
