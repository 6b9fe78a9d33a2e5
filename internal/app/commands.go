package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"teamsync/internal/session"
)

const (
	opTimeout    = 15 * time.Second
	copyTimeout  = 3 * time.Second
	toastTimeout = 4 * time.Second
)

// waitForViewCmd blocks on the next published view. The UI re-issues it after
// each delivery; ok is false once the controller closed the subscription.
func waitForViewCmd(updates <-chan session.View) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		view, ok := <-updates
		return viewMsg{view: view, ok: ok}
	}
}

func startCmd(api SessionAPI, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{op: opStart, err: api.Start(ctx, message)}
	}
}

func continueCmd(api SessionAPI, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{op: opContinue, err: api.ContinueWith(ctx, message)}
	}
}

func respondCmd(api SessionAPI, inquiryID, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{op: opRespond, err: api.RespondToInquiry(ctx, inquiryID, message)}
	}
}

func stopCmd(api SessionAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{op: opStop, err: api.Stop(ctx)}
	}
}

func copyCmd(service clipboardService, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), copyTimeout)
		defer cancel()
		method, err := service.Copy(ctx, text)
		return copyDoneMsg{method: method, err: err}
	}
}

func toastExpireCmd(seq int) tea.Cmd {
	return tea.Tick(toastTimeout, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}
