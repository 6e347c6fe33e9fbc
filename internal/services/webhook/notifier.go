package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier posts events to a configured webhook URL. Notifications are
// fire-and-forget: delivery failures are logged and never propagated to the
// deletion engine. With no URL configured every call is a no-op.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewNotifier creates a new webhook notifier. An empty URL disables it.
func NewNotifier(url string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type event struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Notify sends one event to the webhook
func (n *Notifier) Notify(eventName string, payload interface{}) {
	if n.url == "" {
		return
	}

	body, err := json.Marshal(event{Event: eventName, Timestamp: time.Now(), Payload: payload})
	if err != nil {
		n.logger.WithError(err).WithField("event", eventName).Warn("Failed to encode notification")
		return
	}

	resp, err := n.httpClient.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.WithError(err).WithField("event", eventName).Warn("Failed to deliver notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.WithFields(logrus.Fields{
			"event":  eventName,
			"status": resp.StatusCode,
		}).Warn("Notification rejected by webhook")
		return
	}

	n.logger.WithField("event", eventName).Debug("Notification delivered")
}
