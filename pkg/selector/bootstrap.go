package selector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
	"geoselector/pkg/retry"
)

const opBootstrap = "selector.bootstrap"

// Bootstrap loads the landing page once and extracts the crc token and
// session cookies. Transport failures follow the retry policy. Every
// failure, including exhausted retries and cancellation, is returned as a
// BootstrapError.
func (c *Client) Bootstrap(ctx context.Context) (AuthContext, error) {
	resp, err := retry.DoWithResult[*resty.Response](ctx, c.getFrontPage, c.retry)
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeBootstrap {
			return AuthContext{}, err
		}
		return AuthContext{}, errs.Wrap(errs.ErrorTypeBootstrap, opBootstrap, err)
	}

	crc, err := ExtractCRC(resp.Body())
	if err != nil {
		return AuthContext{}, errs.Wrap(errs.ErrorTypeBootstrap, opBootstrap, err)
	}

	auth := AuthContext{
		CRC:          crc,
		CookieHeader: BuildCookieHeader(resp.Header()),
	}

	c.logger.InfoWithFields("session bootstrapped", map[string]interface{}{
		"cookie_bytes": len(auth.CookieHeader),
	})
	return auth, nil
}

func (c *Client) getFrontPage(ctx context.Context) (*resty.Response, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		Get(c.frontPageURL)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.recorder.ObserveRequest("bootstrap", OutcomeTransport, duration)
		return nil, errs.Wrap(errs.ErrorTypeTransport, opBootstrap, err)
	}

	status := resp.StatusCode()
	logger.LogRequest(c.logger, "bootstrap", status, duration)

	if errs.IsRetryableStatusCode(status) {
		c.recorder.ObserveRequest("bootstrap", OutcomeTransport, duration)
		return nil, &errs.Error{Type: errs.ErrorTypeTransport, Op: opBootstrap, Code: status,
			Message: fmt.Sprintf("landing page returned status %d", status)}
	}
	if !resp.IsSuccess() {
		c.recorder.ObserveRequest("bootstrap", OutcomeMalformed, duration)
		return nil, &errs.Error{Type: errs.ErrorTypeBootstrap, Op: opBootstrap, Code: status,
			Message: fmt.Sprintf("landing page returned status %d", status)}
	}

	c.recorder.ObserveRequest("bootstrap", OutcomeOK, duration)
	return resp, nil
}

// ExtractCRC reads the crc token from the JSON embedded in the body onclick
// attribute of the landing page.
func ExtractCRC(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse landing page: %w", err)
	}

	onclick, ok := doc.Find("body").Attr("onclick")
	if !ok {
		return "", fmt.Errorf("body onclick attribute not found")
	}

	payload := strings.TrimSpace(onclick)
	if !strings.HasPrefix(payload, "return") {
		return "", fmt.Errorf("body onclick does not return a value")
	}
	payload = strings.TrimSpace(strings.TrimPrefix(payload, "return"))
	payload = strings.TrimSuffix(payload, ";")

	var params struct {
		Global struct {
			CRC json.RawMessage `json:"crc"`
		} `json:"i-global"`
	}
	if err := json.Unmarshal([]byte(payload), &params); err != nil {
		return "", fmt.Errorf("decode onclick JSON: %w", err)
	}

	if len(params.Global.CRC) == 0 {
		return "", fmt.Errorf("crc token missing")
	}
	dec := json.NewDecoder(bytes.NewReader(params.Global.CRC))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return "", fmt.Errorf("decode crc: %w", err)
	}

	var crc string
	switch v := value.(type) {
	case string:
		crc = v
	case json.Number:
		crc = v.String()
	case nil:
	default:
		return "", fmt.Errorf("crc token has unexpected type %T", v)
	}
	if crc == "" {
		return "", fmt.Errorf("crc token missing")
	}
	return crc, nil
}

// BuildCookieHeader joins the name=value part of every Set-Cookie header
func BuildCookieHeader(header http.Header) string {
	var pairs []string
	for _, v := range header.Values("Set-Cookie") {
		pair := strings.TrimSpace(strings.SplitN(v, ";", 2)[0])
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return strings.Join(pairs, "; ")
}
