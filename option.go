package transfer

import (
	"time"

	"github.com/vitwit/x402-transfer/logger"
	"github.com/vitwit/x402-transfer/metrics"
	"github.com/vitwit/x402-transfer/signing"
)

type Option func(*Flow)

func WithLogger(l logger.Logger) Option {
	return func(f *Flow) {
		f.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(f *Flow) {
		f.metrics = r
	}
}

// WithSigner overrides the signer selected from the client's network family.
func WithSigner(s signing.Signer) Option {
	return func(f *Flow) {
		f.signer = s
	}
}

// WithConfirmTimeout bounds confirmation polling for each run.
func WithConfirmTimeout(t time.Duration) Option {
	return func(f *Flow) {
		f.confirmTimeout = t
	}
}
