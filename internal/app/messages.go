package app

import "teamsync/internal/session"

type viewMsg struct {
	view session.View
	ok   bool
}

type opKind string

const (
	opStart    opKind = "start"
	opContinue opKind = "continue"
	opRespond  opKind = "respond"
	opStop     opKind = "stop"
)

type opDoneMsg struct {
	op  opKind
	err error
}

type copyDoneMsg struct {
	method clipboardMethod
	err    error
}

type toastExpiredMsg struct {
	seq int
}
