package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/events"
)

// SubscribeEvents streams daemon events until ctx is done or the daemon
// closes the stream. The returned channel is closed afterwards.
func (c *Client) SubscribeEvents(ctx context.Context) <-chan events.Event {
	out := make(chan events.Event, 16)

	go func() {
		defer close(out)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/events", nil)
		if err != nil {
			logrus.WithError(err).Error("failed to create events request")
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				logrus.WithError(err).Error("failed to subscribe to events")
			}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			logrus.WithField("statusCode", resp.StatusCode).Error("failed to subscribe to events")
			return
		}

		parseStream(ctx, bufio.NewScanner(resp.Body), out)
	}()

	return out
}

// parseStream decodes "event:" and "data:" fields; a blank line ends an
// event.
func parseStream(ctx context.Context, sc *bufio.Scanner, out chan<- events.Event) {
	var name string
	var data strings.Builder

	for sc.Scan() {
		line := sc.Text()

		if line == "" {
			if name != "" || data.Len() > 0 {
				ev := events.Event{Name: name, Data: json.RawMessage(data.String())}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			name = ""
			data.Reset()
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
}
