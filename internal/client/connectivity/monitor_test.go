package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/papervault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestMonitor(p Pinger) *Monitor {
	return NewMonitor(p, time.Minute, logging.NewJSONLogger())
}

func TestCheckNow_UpdatesReachability(t *testing.T) {
	p := &fakePinger{err: errors.New("down")}
	m := newTestMonitor(p)
	ctx := context.Background()

	assert.False(t, m.CheckNow(ctx))
	assert.False(t, m.IsReachable())

	p.err = nil
	assert.True(t, m.CheckNow(ctx))
	assert.True(t, m.IsReachable())
}

func TestEdge_FiresOncePerTransition(t *testing.T) {
	p := &fakePinger{err: errors.New("down")}
	m := newTestMonitor(p)
	ctx := context.Background()

	ch := m.Subscribe()

	m.CheckNow(ctx) // offline, no edge
	select {
	case <-ch:
		t.Fatal("unexpected edge while offline")
	default:
	}

	p.err = nil
	m.CheckNow(ctx) // offline -> online
	select {
	case <-ch:
	default:
		t.Fatal("expected edge on offline->online transition")
	}

	m.CheckNow(ctx) // still online, no second edge
	select {
	case <-ch:
		t.Fatal("repeated online probe must not fire")
	default:
	}

	p.err = errors.New("down")
	m.CheckNow(ctx)
	p.err = nil
	m.CheckNow(ctx) // second transition fires again
	select {
	case <-ch:
	default:
		t.Fatal("expected edge on second transition")
	}
}

func TestEdge_CoalescedWhenUnconsumed(t *testing.T) {
	p := &fakePinger{}
	m := newTestMonitor(p)
	ctx := context.Background()

	ch := m.Subscribe()

	for i := 0; i < 3; i++ {
		p.err = errors.New("down")
		m.CheckNow(ctx)
		p.err = nil
		m.CheckNow(ctx)
	}

	// three edges, one buffered signal
	require.Len(t, ch, 1)
}

func TestUnsubscribe_StopsNotifications(t *testing.T) {
	p := &fakePinger{err: errors.New("down")}
	m := newTestMonitor(p)
	ctx := context.Background()

	ch := m.Subscribe()
	m.Unsubscribe(ch)

	p.err = nil
	m.CheckNow(ctx)
	assert.Len(t, ch, 0)
}
