package fetcher

import (
	"context"
	"errors"
	"net"
	"strings"

	"cvurl/internal/failure"
)

// classify reduces an engine error to a *failure.Error. The engine's own
// message stays in the wrapped error.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var fe *failure.Error
	if errors.As(err, &fe) {
		return err
	}
	return failure.New(kindOf(ctx, err), err)
}

func kindOf(ctx context.Context, err error) failure.Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure.Timeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failure.Timeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "net::err_"):
		return failure.NetworkError
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return failure.Timeout
	case strings.Contains(msg, "blocked"), strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "status 403"), strings.Contains(msg, "status 999"):
		return failure.AccessDenied
	}
	return failure.NetworkError
}
