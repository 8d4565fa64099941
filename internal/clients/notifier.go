// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package clients

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

// Notifier posts failure alerts to an operator Slack channel, rate-limited
// per series so a flapping source cannot flood the channel.
//
// Notification errors never propagate: callers treat every method here as
// best-effort.
type Notifier struct {
	client   *slack.Client
	channel  string
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewNotifier constructs a [Notifier]. channelKey is the Slack channel ID
// or name alerts are posted to.
func NewNotifier(token, channelKey string, cooldown time.Duration) *Notifier {
	return &Notifier{
		client:   slack.New(token),
		channel:  channelKey,
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
	}
}

// NotifyConsecutiveFailures posts an alert for a series' consecutive
// failures, then withholds further alerts for that series until cooldown has
// elapsed. It applies no failure threshold itself; the caller decides when
// the threshold is reached.
func (n *Notifier) NotifyConsecutiveFailures(ctx context.Context, seriesExternalID, title string, failures int, lastErr string) {
	if !n.shouldSend(seriesExternalID) {
		return
	}

	text := fmt.Sprintf(":warning: *%s* (`%s`) has failed %d consecutive sync attempts.\nLast error: %s",
		title, seriesExternalID, failures, lastErr)

	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		// NotificationFailure: swallowed here; it is neither returned nor logged.
		return
	}
}

func (n *Notifier) shouldSend(seriesExternalID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	last, seen := n.lastSent[seriesExternalID]
	if seen && time.Since(last) < n.cooldown {
		return false
	}
	n.lastSent[seriesExternalID] = time.Now()
	return true
}
