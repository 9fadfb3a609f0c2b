package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/alchemist/pkg/errors"
)

// PredictionsClient runs predictions and reads the prediction history.
type PredictionsClient struct {
	client *Client
}

// Predict runs a synchronous prediction.
func (c *PredictionsClient) Predict(ctx context.Context, req *PredictRequest) (*PredictResult, error) {
	if req == nil || len(req.Reactants) == 0 {
		return nil, errors.InvalidParam("reactants are required")
	}
	var out PredictResult
	if err := c.client.post(ctx, "/api/v1/reactions/predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transmute extracts species from text and predicts their reaction.
func (c *PredictionsClient) Transmute(ctx context.Context, text string) (*TransmuteResult, error) {
	if text == "" {
		return nil, errors.InvalidParam("text is required")
	}
	var out TransmuteResult
	if err := c.client.post(ctx, "/api/v1/transmute", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit queues a prediction and returns the pending record.
func (c *PredictionsClient) Submit(ctx context.Context, req *PredictRequest) (*Record, error) {
	if req == nil || len(req.Reactants) == 0 {
		return nil, errors.InvalidParam("reactants are required")
	}
	var out Record
	if err := c.client.post(ctx, "/api/v1/predictions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PredictionsClient) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, errors.InvalidParam("id is required")
	}
	var out Record
	if err := c.client.get(ctx, "/api/v1/predictions/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of history, newest first.
func (c *PredictionsClient) List(ctx context.Context, limit, offset int) (*RecordPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprint(offset))
	}
	path := "/api/v1/predictions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out RecordPage
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wait polls a submitted record every interval until it is terminal or ctx
// ends. On cancellation the last record seen is returned with ctx.Err().
func (c *PredictionsClient) Wait(ctx context.Context, id string, interval time.Duration) (*Record, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last *Record
	for {
		rec, err := c.Get(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return nil, err
		}
		if rec.Terminal() {
			return rec, nil
		}
		last = rec
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
