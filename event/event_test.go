// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/zkvote/event"
	"github.com/blinklabs-io/zkvote/internal/test/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testEvtType event.EventType = "test.event"

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	return testutil.RequireReceive(t, ch, time.Second, "event")
}

func TestEventBusSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1 := eb.Subscribe(testEvtType)
	_, sub2 := eb.Subscribe(testEvtType)
	_, other := eb.Subscribe("other.event")

	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	assert.Equal(t, 999, receive(t, sub1).Data)
	assert.Equal(t, 999, receive(t, sub2).Data)
	testutil.RequireNoReceive(t, other, 50*time.Millisecond, "event of another type")
}

func TestEventBusUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	_, ok := <-subCh
	assert.False(t, ok)
	// unknown ids are ignored
	eb.Unsubscribe(testEvtType, subId)
}

func TestEventBusSlowSubscriberIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, slow := eb.Subscribe(testEvtType)
	_, fast := eb.Subscribe(testEvtType)

	done := make(chan struct{})
	var received atomic.Int32
	go func() {
		defer close(done)
		for range fast {
			received.Add(1)
		}
	}()
	// publishing never blocks on the slow subscriber
	for i := range event.EventQueueSize + 5 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
	}
	var drained int
	for range slow {
		drained++
	}
	assert.Equal(t, event.EventQueueSize, drained)
	count, err := promtestutil.GatherAndCount(reg, "zkvote_event_delivery_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	eb.Stop()
	<-done
}

func TestEventBusSubscribeFunc(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	got := make(chan event.WorkflowStateChangedEvent, 1)
	eb.SubscribeFunc(event.WorkflowStateChangedEventType, func(evt event.Event) {
		got <- evt.Data.(event.WorkflowStateChangedEvent)
	})
	require.True(t, eb.PublishAsync(
		event.WorkflowStateChangedEventType,
		event.NewEvent(event.WorkflowStateChangedEventType, event.WorkflowStateChangedEvent{
			From: "Selecting",
			To:   "Submitting",
		}),
	))
	change := testutil.RequireReceive(t, got, time.Second, "handler not called")
	assert.Equal(t, "Submitting", change.To)
	eb.Stop()
	assert.False(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, nil)))
}

type panicSubscriber struct{ closed atomic.Bool }

func (p *panicSubscriber) Deliver(event.Event) error { panic("boom") }
func (p *panicSubscriber) Close()                    { p.closed.Store(true) }

func TestEventBusPanickingSubscriber(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sub := &panicSubscriber{}
	eb.Register(testEvtType, sub)
	_, ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "x"))
	assert.Equal(t, "x", receive(t, ch).Data)
	assert.True(t, sub.closed.Load())
}
