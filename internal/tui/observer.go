package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/bookcat/internal/domain"
)

// ChannelObserver adapts domain.StateObserver to a channel for Bubble Tea.
type ChannelObserver struct {
	ch chan<- struct{}
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan<- struct{}) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnStateChange signals the channel (non-blocking if a signal is pending).
func (o *ChannelObserver) OnStateChange() {
	select {
	case o.ch <- struct{}{}:
	default: // A pending signal already triggers a re-render
	}
}

// WaitForChangeCmd blocks until the store reports a change
func WaitForChangeCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return StateChangedMsg{}
	}
}

// confirmRequest is a question waiting for the modal
type confirmRequest struct {
	prompt string
	reply  chan bool
}

// ModalConfirmer implements domain.Confirmer by handing the question to the
// TUI, which shows a modal and sends back the answer.
type ModalConfirmer struct {
	requests chan confirmRequest
}

// NewModalConfirmer creates a confirmer with no pending questions
func NewModalConfirmer() *ModalConfirmer {
	return &ModalConfirmer{requests: make(chan confirmRequest)}
}

// Confirm blocks until the user answers or ctx is done
func (c *ModalConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	req := confirmRequest{prompt: prompt, reply: make(chan bool, 1)}

	select {
	case c.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// WaitForConfirmCmd blocks until a command asks for confirmation
func (c *ModalConfirmer) WaitForConfirmCmd() tea.Cmd {
	return func() tea.Msg {
		req := <-c.requests
		return ConfirmRequestMsg{Prompt: req.prompt, Reply: req.reply}
	}
}

var (
	_ domain.StateObserver = (*ChannelObserver)(nil)
	_ domain.Confirmer     = (*ModalConfirmer)(nil)
)
