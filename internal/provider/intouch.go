package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

type IntouchClient struct {
	http *resty.Client
}

type intouchError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func NewIntouchClient(baseURL, apiKey string, timeout time.Duration) *IntouchClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &IntouchClient{http: client}
}

func (c *IntouchClient) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	var out TransferResponse
	var apiErr intouchError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/transfers")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := classify(resp, apiErr); err != nil {
		logger.Warn("InTouch transfer initiation failed", logger.Fields{
			"status_code": resp.StatusCode(),
			"code":        apiErr.Code,
			"message":     apiErr.Message,
		})
		return nil, err
	}

	return &out, nil
}

func (c *IntouchClient) QueryStatus(ctx context.Context, providerID string) (*StatusResponse, error) {
	var out StatusResponse
	var apiErr intouchError

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", providerID).
		SetResult(&out).
		SetError(&apiErr).
		Get("/transfers/{id}")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := classify(resp, apiErr); err != nil {
		return nil, err
	}

	if out.TransactionID == "" {
		out.TransactionID = providerID
	}
	return &out, nil
}

func classify(resp *resty.Response, apiErr intouchError) error {
	if !resp.IsError() {
		return nil
	}

	detail := apiErr.Message
	if detail == "" {
		detail = resp.Status()
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", ErrRejected, detail)
	}
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
