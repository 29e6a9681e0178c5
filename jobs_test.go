package main

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

// drainJobs pumps job messages through the manager until it goes idle and
// returns every message seen.
func drainJobs(t *testing.T, jm *jobManager, cmd tea.Cmd) []jobMsg {
	t.Helper()
	var seen []jobMsg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		require.Less(t, len(seen), 100)
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case jobMsg:
			seen = append(seen, msg)
			queue = append(queue, jm.Handle(msg))
		}
	}
	return seen
}

func TestJobManagerRunsQueuedJobsInOrder(t *testing.T) {
	jm := newJobManager()
	var order []string
	var finished []error

	req := func(kind jobKind, title string, err error) jobRequest {
		return jobRequest{
			kind:  kind,
			title: title,
			run: func(ctx context.Context, report jobReporter) error {
				order = append(order, title)
				report(title+" half", 0.5)
				return err
			},
			onFinish: func(err error) tea.Cmd {
				finished = append(finished, err)
				return nil
			},
		}
	}

	boom := errors.New("boom")
	first := jm.Enqueue(req(jobRefresh, "refresh", nil))
	require.Nil(t, jm.Enqueue(req(jobSync, "sync", boom)))
	require.True(t, jm.Busy(jobRefresh))
	require.True(t, jm.Busy(jobSync))
	require.Equal(t, 1, jm.Pending())

	seen := drainJobs(t, jm, first)

	require.Equal(t, []string{"refresh", "sync"}, order)
	require.Equal(t, []error{nil, boom}, finished)
	require.False(t, jm.Busy(jobRefresh))
	require.False(t, jm.Busy(jobSync))
	_, running := jm.Running()
	require.False(t, running)

	var progress []string
	for _, msg := range seen {
		if p, ok := msg.(jobProgressMsg); ok {
			progress = append(progress, p.Line)
		}
	}
	require.Equal(t, []string{"refresh half", "sync half"}, progress)
}

func TestJobManagerCancel(t *testing.T) {
	jm := newJobManager()
	require.False(t, jm.Cancel())

	started := make(chan struct{})
	cmd := jm.Enqueue(jobRequest{
		kind:  jobRefresh,
		title: "slow",
		run: func(ctx context.Context, report jobReporter) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})
	msg := cmd()
	require.IsType(t, jobStartedMsg{}, msg)
	<-started
	require.True(t, jm.Cancel())

	seen := drainJobs(t, jm, jm.Handle(msg.(jobMsg)))
	var finish jobFinishedMsg
	for _, m := range seen {
		if f, ok := m.(jobFinishedMsg); ok {
			finish = f
		}
	}
	require.ErrorIs(t, finish.Err, context.Canceled)
	require.False(t, jm.Busy(jobRefresh))
}

func TestJobManagerIgnoresStaleMessages(t *testing.T) {
	jm := newJobManager()
	require.Nil(t, jm.Handle(jobProgressMsg{ID: 42, Line: "old"}))
}

func TestRatio(t *testing.T) {
	require.Equal(t, 0.0, ratio(3, 0))
	require.Equal(t, 0.5, ratio(2, 4))
}
