package app

import (
	"context"

	"teamsync/internal/session"
)

// SessionAPI is the part of session.Controller the UI drives.
type SessionAPI interface {
	Start(ctx context.Context, message string) error
	ContinueWith(ctx context.Context, message string) error
	RespondToInquiry(ctx context.Context, inquiryID, message string) error
	Stop(ctx context.Context) error
	View() session.View
	Subscribe() (<-chan session.View, func())
}

var _ SessionAPI = (*session.Controller)(nil)
