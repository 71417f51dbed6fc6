// Package notify carries user-facing notices out of the domain services. The
// storefront UI renders these as toasts; the gateway logs them and echoes the
// message back to the caller through the API envelope.
package notify

import (
	"context"

	"github.com/royaliq/storefront/pkg/logger"
)

// Notifier receives the outcome messages the shopper should see.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Success(ctx context.Context, message string) {
	if n == nil || n.logg == nil {
		return
	}
	n.logg.Info(n.logg.WithField(ctx, "notice", message), "notice.success")
}

func (n *LogNotifier) Error(ctx context.Context, message string) {
	if n == nil || n.logg == nil {
		return
	}
	n.logg.Warn(n.logg.WithField(ctx, "notice", message), "notice.error")
}

// Recorder captures notices for assertions in tests.
type Recorder struct {
	Successes []string
	Errors    []string
}

func (r *Recorder) Success(_ context.Context, message string) {
	r.Successes = append(r.Successes, message)
}

func (r *Recorder) Error(_ context.Context, message string) {
	r.Errors = append(r.Errors, message)
}
