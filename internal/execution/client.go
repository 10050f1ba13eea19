package execution

import "context"

// FetchResult is the discriminated result of one Client.Fetch call: either the
// submission is still pending, or it reached a terminal Outcome.
type FetchResult struct {
	Pending bool
	Outcome Outcome
}

// Client talks to the external judge service. Submit and Fetch each perform
// exactly one request; the judge service is accept-now, compute-later, so
// submission and result retrieval are decoupled operations. Fetch never blocks
// or retries; polling is the Poller's job.
type Client interface {
	Submit(ctx context.Context, sub Submission) (Handle, error)
	Fetch(ctx context.Context, handle Handle) (FetchResult, error)
}
