package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dfryer1193/agromedia/media/application"
)

const maxRedirects = 10

// NewUpstreamClient builds the client used for image fetches. Every redirect hop must land
// on a host in hosts; the first one that does not aborts the request with
// application.ErrHostNotAllowed.
func NewUpstreamClient(hosts *application.AllowedHostSet) *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			if hosts == nil || !hosts.Allows(req.URL.Host) {
				return fmt.Errorf("%w: redirect to %s", application.ErrHostNotAllowed, req.URL.Host)
			}
			return nil
		},
	}
}
