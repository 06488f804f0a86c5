package ports

import "context"

// Publisher delivers verification events (e.g. a checkout phone that turned
// out not to be WhatsApp) to an external topic for follow-up automation.
type Publisher interface {
	PublishRaw(ctx context.Context, arn string, payload []byte) error
}
