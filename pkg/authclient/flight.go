package authclient

import (
	"context"

	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// RefreshFlight collapses concurrent refresh attempts into one in-flight call. Every caller that
// arrives while a call is running shares its result; the next caller after it settles starts a
// new one.
type RefreshFlight struct {
	g singleflight.Group
}

// GetOrStart joins the in-flight refresh or starts fn. fn runs detached from the caller's
// cancellation so one waiter giving up does not fail the others; a cancelled waiter returns
// ctx.Err() while the call continues.
func (f *RefreshFlight) GetOrStart(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	detached := context.WithoutCancel(ctx)
	ch := f.g.DoChan(refreshKey, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}
