package overseerr

import (
	"context"
	"fmt"
	"strconv"

	"github.com/helliott20/prunerr-sub001/internal/services/arrhttp"
	"github.com/sirupsen/logrus"
)

// Client talks to the Overseerr request-broker API. Prunerr only uses it to
// reset a deleted item so users can request it again.
type Client struct {
	http   *arrhttp.Client
	logger *logrus.Logger
}

// NewClient creates a new Overseerr client
func NewClient(baseURL, apiKey string, logger *logrus.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Overseerr API key is required")
	}
	httpClient, err := arrhttp.New(arrhttp.Config{BaseURL: baseURL, APIKey: apiKey}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Overseerr client: %w", err)
	}
	return &Client{http: httpClient, logger: logger}, nil
}

// Reset removes the Overseerr media record (and its requests) for the given
// media id so the content becomes requestable again. Returns whether a
// record was actually reset; an unknown id is not an error.
func (c *Client) Reset(ctx context.Context, mediaID int) (bool, error) {
	err := c.http.Delete(ctx, "/api/v1/media/"+strconv.Itoa(mediaID), nil)
	if err != nil {
		if arrhttp.IsNotFound(err) {
			c.logger.WithField("media_id", mediaID).Debug("No Overseerr record to reset")
			return false, nil
		}
		return false, fmt.Errorf("failed to reset Overseerr media %d: %w", mediaID, err)
	}

	c.logger.WithField("media_id", mediaID).Debug("Overseerr media reset")
	return true, nil
}
