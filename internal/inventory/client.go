package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Client calls the inventory service's stock-adjustment endpoint. It
// implements the order coordinator's StockAdjuster port. The caller is
// expected to bound each call with a context deadline.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     zerolog.Logger
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		Log: log,
	}
}

type adjustRequest struct {
	Quantity int `json:"quantity"`
}

func (c *Client) AdjustStock(ctx context.Context, productID string, quantity int) error {
	body, err := json.Marshal(adjustRequest{Quantity: quantity})
	if err != nil {
		return errors.Wrap(err, "encode adjust request")
	}

	url := fmt.Sprintf("%s/products/%s/stock", c.BaseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build adjust request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "adjust stock for product %s", productID)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(ErrNotFound, "product %s", productID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.Errorf("adjust stock for product %s: status %d", productID, resp.StatusCode)
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return errors.Wrap(err, "decode adjusted product")
	}
	c.Log.Debug().
		Str("product_id", p.ID).
		Int("quantity", quantity).
		Int("stock", p.Stock).
		Msg("stock adjustment accepted")
	return nil
}
