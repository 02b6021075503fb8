package authclient

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/MrEthical07/goAuth-client/refresh"
	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

// Pipeline sends authenticated requests.
//
// Every call first obtains a fresh access token. A 401 triggers one forced refresh and
// exactly one retry; a second 401 is returned to the caller. Pipeline is safe for
// concurrent use.
type Pipeline struct {
	coord     *refresh.Coordinator
	transport *transport.Client
	metrics   *Metrics
	logger    *zap.Logger
}

// Send performs req with the current access token.
//
// Without a session it returns an error wrapping [ErrNotAuthenticated] and sends nothing.
// Non-401 statuses are returned unchanged with a nil error. If the retry is also
// rejected, Send returns that response together with an error wrapping [ErrUnauthorized].
func (p *Pipeline) Send(ctx context.Context, req Request) (*Response, error) {
	out := p.coord.EnsureFresh(ctx)
	if !out.Authenticated() {
		if out.Err == nil {
			p.metrics.Inc(MetricNotAuthenticated)
		}
		return nil, out.AsError()
	}

	resp, err := p.send(ctx, req, out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	p.metrics.Inc(MetricUnauthorizedRetry)
	p.logger.Debug("request rejected; forcing refresh",
		zap.String("request_id", resp.RequestID),
		zap.String("path", req.Path),
		zap.String("access_fp", tokenstore.Fingerprint(out.Token)),
	)

	retry := p.coord.ForceRefresh(ctx, out.Token)
	if !retry.Authenticated() {
		if retry.Err == nil {
			p.metrics.Inc(MetricNotAuthenticated)
		}
		return nil, retry.AsError()
	}

	resp, err = p.send(ctx, req, retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		p.metrics.Inc(MetricRetryExhausted)
		return resp, &transport.APIError{
			Op:         "request",
			StatusCode: resp.StatusCode,
			Message:    "rejected after token refresh",
			Err:        transport.ErrUnauthorized,
		}
	}
	return resp, nil
}

func (p *Pipeline) send(ctx context.Context, req Request, out refresh.Outcome) (*Response, error) {
	p.metrics.Inc(MetricRequestSent)
	return p.transport.Send(ctx, req, transport.Authorization(out.Pair.Scheme(), out.Token))
}
