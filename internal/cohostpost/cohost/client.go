package cohost

import (
	"net/http"

	"github.com/blacktop/cohostpost/internal/config"
	"github.com/blacktop/cohostpost/internal/trpc"
	"github.com/hashicorp/go-cleanhttp"
)

// Client talks to the cohost API and upload endpoint. It holds no session;
// callers pass one to every authenticated call.
type Client struct {
	api       *trpc.Client
	http      *http.Client
	uploadURL string
	handle    string
	userAgent string
}

// NewClient builds a client from cfg. A zero Timeout leaves requests bounded
// only by their context.
func NewClient(cfg config.Config) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Timeout
	return newClient(cfg, httpClient)
}

func newClient(cfg config.Config, httpClient *http.Client) *Client {
	return &Client{
		api: &trpc.Client{
			HTTPClient: httpClient,
			BaseURL:    cfg.APIURL,
			UserAgent:  cfg.UserAgent,
		},
		http:      httpClient,
		uploadURL: cfg.UploadURL,
		handle:    cfg.Handle,
		userAgent: cfg.UserAgent,
	}
}
