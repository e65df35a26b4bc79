package collab

import (
	"net/http"
	"net/http/httputil"

	"github.com/kilianp07/collabsched/infra/logger"
)

type dumpTransport struct {
	next http.RoundTripper
	log  logger.Logger
}

func (t *dumpTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	if dump, err := httputil.DumpRequestOut(req, true); err == nil {
		t.log.Debugw("http request", map[string]any{"request_id": req.Header.Get(RequestIDHeader), "dump": string(dump)})
	}
	resp, err := next.RoundTrip(req)
	if err != nil {
		t.log.Debugw("http error", map[string]any{"request_id": req.Header.Get(RequestIDHeader), "error": err.Error()})
		return nil, err
	}
	if dump, err := httputil.DumpResponse(resp, true); err == nil {
		t.log.Debugw("http response", map[string]any{"request_id": req.Header.Get(RequestIDHeader), "dump": string(dump)})
	}
	return resp, nil
}
