// Package connectors fetches raw daily-report emails from a mailbox and stores them for intake.
package connectors

import (
	"context"

	"obra/internal"
)

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
