package client

import (
	"context"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/events"
)

// SubscribeEvents streams daemon events until ctx is done or the daemon
// closes the stream. Dropped connections are retried with backoff. The
// returned channel is closed when streaming ends.
func (c *Client) SubscribeEvents(ctx context.Context) <-chan events.Event {
	out := make(chan events.Event, 16)

	sc := sse.NewClient("http://unix/events")
	sc.Connection = c.httpClient
	sc.ReconnectNotify = func(err error, next time.Duration) {
		logrus.WithError(unwrapDialError(err)).Warnf("event stream lost, retrying in %s", next)
	}

	go func() {
		defer close(out)

		err := sc.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			if len(msg.Data) == 0 {
				return
			}
			ev := events.Event{Name: string(msg.Event), Data: append([]byte(nil), msg.Data...)}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			logrus.WithError(unwrapDialError(err)).Warn("event stream ended")
		}
	}()

	return out
}
