package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

type jobKind int

const (
	jobRefresh jobKind = iota
	jobSync
)

func (k jobKind) String() string {
	if k == jobSync {
		return "sync"
	}
	return "refresh"
}

// jobReporter lets a running job publish a status line and a completion
// ratio in [0, 1].
type jobReporter func(line string, ratio float64)

type jobRequest struct {
	kind     jobKind
	title    string
	run      func(ctx context.Context, report jobReporter) error
	onFinish func(error) tea.Cmd
}

type jobMsg interface {
	isJob()
	jobID() int
}

type jobStartedMsg struct {
	ID    int
	Title string
}

func (jobStartedMsg) isJob()         {}
func (msg jobStartedMsg) jobID() int { return msg.ID }

type jobProgressMsg struct {
	ID    int
	Title string
	Line  string
	Ratio float64
}

func (jobProgressMsg) isJob()         {}
func (msg jobProgressMsg) jobID() int { return msg.ID }

type jobFinishedMsg struct {
	ID    int
	Title string
	Err   error
}

func (jobFinishedMsg) isJob()         {}
func (msg jobFinishedMsg) jobID() int { return msg.ID }

type jobChannelClosedMsg struct {
	ID int
}

func (jobChannelClosedMsg) isJob()         {}
func (msg jobChannelClosedMsg) jobID() int { return msg.ID }

// jobManager runs background jobs one at a time and streams their messages
// into the update loop.
type jobManager struct {
	queue   []jobRequest
	current *jobRequest
	running bool
	nextID  int
	id      int
	ch      chan jobMsg
	cancel  context.CancelFunc
}

func newJobManager() *jobManager {
	return &jobManager{}
}

func (jm *jobManager) Enqueue(req jobRequest) tea.Cmd {
	jm.queue = append(jm.queue, req)
	return jm.nextCmd()
}

// Busy reports whether a job of kind is running or queued.
func (jm *jobManager) Busy(kind jobKind) bool {
	if jm.current != nil && jm.current.kind == kind {
		return true
	}
	for _, req := range jm.queue {
		if req.kind == kind {
			return true
		}
	}
	return false
}

func (jm *jobManager) Running() (jobRequest, bool) {
	if jm.current == nil {
		return jobRequest{}, false
	}
	return *jm.current, true
}

func (jm *jobManager) Pending() int {
	return len(jm.queue)
}

// Cancel stops the running job. Queued jobs are kept.
func (jm *jobManager) Cancel() bool {
	if !jm.running || jm.cancel == nil {
		return false
	}
	jm.cancel()
	return true
}

func (jm *jobManager) Handle(msg jobMsg) tea.Cmd {
	if msg.jobID() != jm.id {
		return nil
	}
	switch msg := msg.(type) {
	case jobStartedMsg, jobProgressMsg:
		return waitForJobMsg(jm.id, jm.ch)
	case jobFinishedMsg:
		var after tea.Cmd
		if jm.current != nil && jm.current.onFinish != nil {
			after = jm.current.onFinish(msg.Err)
		}
		return tea.Batch(after, waitForJobMsg(jm.id, jm.ch))
	case jobChannelClosedMsg:
		if jm.cancel != nil {
			jm.cancel()
		}
		jm.running = false
		jm.current = nil
		jm.cancel = nil
		jm.ch = nil
		return jm.nextCmd()
	}
	return nil
}

func (jm *jobManager) nextCmd() tea.Cmd {
	if jm.running {
		return nil
	}
	if len(jm.queue) == 0 {
		return nil
	}
	req := jm.queue[0]
	jm.queue = jm.queue[1:]
	jm.current = &req
	jm.running = true
	jm.nextID++
	jm.id = jm.nextID

	ctx, cancel := context.WithCancel(context.Background())
	jm.cancel = cancel
	jm.ch = make(chan jobMsg, 16)
	go runJob(ctx, jm.id, req, jm.ch)
	return waitForJobMsg(jm.id, jm.ch)
}

func runJob(ctx context.Context, id int, req jobRequest, ch chan<- jobMsg) {
	defer close(ch)

	ch <- jobStartedMsg{ID: id, Title: req.title}
	err := req.run(ctx, func(line string, ratio float64) {
		select {
		case ch <- jobProgressMsg{ID: id, Title: req.title, Line: line, Ratio: ratio}:
		case <-ctx.Done():
		}
	})
	ch <- jobFinishedMsg{ID: id, Title: req.title, Err: err}
}

func waitForJobMsg(id int, ch <-chan jobMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return jobChannelClosedMsg{ID: id}
		}
		return msg
	}
}
