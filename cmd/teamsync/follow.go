package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"teamsync/internal/session"
	"teamsync/internal/timeline"
	"teamsync/internal/types"
)

const entryTimeFormat = "15:04:05"

// entryPrinter writes timeline entries as plain lines, each entry once.
// Entries are tracked by dedup key since a merged entry takes the id of its
// newest copy.
type entryPrinter struct {
	out     io.Writer
	printed map[types.EntryKey]struct{}
}

func newEntryPrinter(out io.Writer) *entryPrinter {
	return &entryPrinter{out: out, printed: map[types.EntryKey]struct{}{}}
}

func (p *entryPrinter) print(entries []types.TimelineEntry) {
	for _, entry := range entries {
		key := entry.DedupKey()
		if _, ok := p.printed[key]; ok {
			continue
		}
		p.printed[key] = struct{}{}
		fmt.Fprintln(p.out, formatEntry(entry))
	}
}

func formatEntry(entry types.TimelineEntry) string {
	stamp := ""
	if !entry.CreatedAt.IsZero() {
		stamp = "[" + entry.CreatedAt.Local().Format(entryTimeFormat) + "] "
	}
	content := strings.TrimRight(entry.Content, "\n")
	if entry.Synthetic() && (entry.Kind == types.EntryKindTaskStarted || entry.Kind == types.EntryKindTaskCompleted) {
		return stamp + "* " + content
	}
	switch entry.Kind {
	case types.EntryKindInquiryQuestion:
		return stamp + "? " + content
	case types.EntryKindFinalSpecification:
		return stamp + "== final specification ==\n" + content
	}
	sender := strings.TrimSpace(entry.Sender)
	if sender == "" {
		sender = "agent"
	}
	return stamp + sender + ": " + content
}

// lineReader reads one line from r each time next is called, so input is
// only consumed while a question is waiting.
type lineReader struct {
	requests chan struct{}
	lines    chan string
	once     sync.Once
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		requests: make(chan struct{}, 1),
		lines:    make(chan string, 1),
	}
	go func() {
		scanner := bufio.NewScanner(r)
		for range lr.requests {
			if !scanner.Scan() {
				close(lr.lines)
				return
			}
			lr.lines <- scanner.Text()
		}
	}()
	return lr
}

func (lr *lineReader) next() {
	select {
	case lr.requests <- struct{}{}:
	default:
	}
}

func (lr *lineReader) close() {
	lr.once.Do(func() { close(lr.requests) })
}

type followOptions struct {
	out    io.Writer
	errOut io.Writer
	in     io.Reader
}

// followSession streams the controller's timeline until the session reaches a
// terminal state or ctx ends. Pending questions are answered from in.
func followSession(ctx context.Context, ctrl *session.Controller, opts followOptions) error {
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	printer := newEntryPrinter(opts.out)
	var reader *lineReader
	var answers <-chan string
	if opts.in != nil {
		reader = newLineReader(opts.in)
		defer reader.close()
		answers = reader.lines
	}
	prompted := ""
	answered := map[string]struct{}{}
	lastErr := ""

	for {
		select {
		case <-ctx.Done():
			if id := ctrl.SessionID(); id != "" {
				fmt.Fprintf(opts.errOut, "interrupted; session %s keeps running (teamsync stop %s)\n", id, id)
			}
			return ctx.Err()
		case view, ok := <-updates:
			if !ok {
				return nil
			}
			printer.print(view.Entries)
			if view.LastError != "" && view.LastError != lastErr {
				fmt.Fprintln(opts.errOut, "warning: "+view.LastError)
			}
			lastErr = view.LastError
			if view.Terminal() {
				return finishMessage(opts.out, view)
			}
			pending := view.PendingInquiry
			if view.State == session.StateAwaitingUserInput && pending != nil && pending.ID != prompted && reader != nil {
				if _, done := answered[pending.ID]; done {
					continue
				}
				prompted = pending.ID
				for _, detail := range timeline.QuestionDetails(pending) {
					fmt.Fprintln(opts.out, "  "+detail)
				}
				fmt.Fprint(opts.out, "> ")
				reader.next()
			}
		case line, ok := <-answers:
			if !ok {
				answers = nil
				continue
			}
			line = strings.TrimSpace(line)
			if prompted == "" {
				continue
			}
			if line == "" {
				fmt.Fprint(opts.out, "> ")
				reader.next()
				continue
			}
			if err := ctrl.RespondToInquiry(ctx, prompted, line); err != nil {
				if session.IsKind(err, session.ErrorInquiryNotFound) {
					fmt.Fprintln(opts.errOut, "question is no longer pending")
					prompted = ""
					continue
				}
				fmt.Fprintln(opts.errOut, "answer failed: "+errorText(err))
				fmt.Fprint(opts.out, "> ")
				reader.next()
				continue
			}
			answered[prompted] = struct{}{}
			prompted = ""
		}
	}
}

func finishMessage(out io.Writer, view session.View) error {
	switch view.State {
	case session.StateCompleted:
		fmt.Fprintf(out, "session %s completed\n", view.SessionID)
		return nil
	case session.StateStopped:
		fmt.Fprintf(out, "session %s stopped\n", view.SessionID)
		return nil
	default:
		message := view.LastError
		if message == "" {
			message = "the session ended with an error"
		}
		return errors.New(message)
	}
}

func errorText(err error) string {
	var sessionErr *session.Error
	if errors.As(err, &sessionErr) {
		return sessionErr.UserMessage()
	}
	return err.Error()
}
