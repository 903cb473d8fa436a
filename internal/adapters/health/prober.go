package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/melih/graphdeploy/internal/core/domain"
)

// Prober issues HTTP liveness probes against a deployment endpoint. A probe
// succeeds on any 2xx response; everything else, including a timeout,
// counts as a failure.
type Prober struct {
	client *http.Client
}

func NewProber() *Prober {
	// Per-probe deadlines come from the policy timeout, not the client.
	return &Prober{client: &http.Client{}}
}

// Watch runs the probe loop until ctx is cancelled. It waits out the
// policy's start period before the first probe, then probes every interval.
// report receives every result together with the consecutive failure count;
// a success resets the count.
func (p *Prober) Watch(ctx context.Context, baseURL string, policy domain.HealthPolicy, report func(domain.ProbeResult)) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(policy.StartPeriod):
	}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		res := p.probe(ctx, baseURL+policy.Path, policy.Timeout)
		// A cancellation mid-probe surfaces as a request error; it is a
		// shutdown, not a failed probe, so it must not be reported.
		if ctx.Err() != nil {
			return
		}
		if res.Healthy {
			failures = 0
		} else {
			failures++
		}
		res.Failures = failures
		report(res)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Prober) probe(ctx context.Context, url string, timeout time.Duration) domain.ProbeResult {
	res := domain.ProbeResult{CheckedAt: time.Now()}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	resp, err := p.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Healthy = true
	} else {
		res.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return res
}
