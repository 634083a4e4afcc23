// Package apiclient is a small typed client for the inventory REST API,
// used by the watch CLI and by integration tooling.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/domain"
)

type Client struct {
	rest   *resty.Client
	logger *zap.Logger
	token  string
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &Client{
		rest:   rest,
		logger: logger,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type loginBody struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Token returns the bearer token obtained by Login.
func (c *Client) Token() string {
	return c.token
}

// Login authenticates and stores the bearer token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.User, error) {
	var body loginBody
	var apiErr errorBody

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&body).
		SetError(&apiErr).
		Post("/auth/login")
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	if err := statusError(resp, apiErr); err != nil {
		return nil, err
	}

	c.token = body.Token
	c.logger.Debug("logged in", zap.String("username", body.User.Username))
	return &body.User, nil
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Data []domain.Product `json:"data"`
	Meta struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	} `json:"meta"`
}

// ListProducts fetches one page of products for a partition.
func (c *Client) ListProducts(ctx context.Context, subdivisionID, apartmentTypeID string, page, limit int) (*ProductPage, error) {
	var body ProductPage
	var apiErr errorBody

	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetQueryParams(map[string]string{
			"subdivision":   subdivisionID,
			"apartmentType": apartmentTypeID,
			"page":          strconv.Itoa(page),
			"limit":         strconv.Itoa(limit),
		}).
		SetResult(&body).
		SetError(&apiErr).
		Get("/products/")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if err := statusError(resp, apiErr); err != nil {
		return nil, err
	}
	return &body, nil
}

func statusError(resp *resty.Response, apiErr errorBody) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode() == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode() == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.IsError():
		if apiErr.Error != "" {
			return fmt.Errorf("server rejected request: %s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return nil
}
