package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/models"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 16 << 20

// do sends one JSON request and returns the body of a 2xx response. Non-2xx
// statuses become *APIError, transport failures *NetworkError.
func (c *Client) do(ctx context.Context, method, endpoint, apiKey string, payload any) ([]byte, error) {
	if apiKey == "" {
		return nil, apierrors.ErrMissingCredential
	}
	if c.IsClosed() {
		return nil, fmt.Errorf("client is closed")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := fhttp.NewRequest(method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Debug("request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, apierrors.NewNetworkError(method+" "+endpoint, endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apierrors.NewNetworkError("read "+endpoint, endpoint, err)
	}

	c.logger.Debug("request finished",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fhttp.StatusText(resp.StatusCode)
		if gjson.ValidBytes(respBody) {
			if msg := gjson.GetBytes(respBody, PathErrorMessage).String(); msg != "" {
				message = msg
			}
		}
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, endpoint, message, string(respBody))
	}

	if !gjson.ValidBytes(respBody) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}
	return respBody, nil
}
