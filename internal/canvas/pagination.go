package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apierrors "github.com/noah-isme/canvas-autograder/pkg/errors"
)

// nextPageRateLimitDelay is the fallback wait when a next-page fetch is rate
// limited without a usable Retry-After header.
const nextPageRateLimitDelay = 10 * time.Second

// parseLinkHeader extracts rel -> URL pairs from an RFC 5988 Link header of
// the form `<url>; rel="name", <url>; rel="name"`. Malformed entries are
// skipped rather than reported.
func parseLinkHeader(header string) map[string]string {
	links := make(map[string]string)
	if header == "" {
		return links
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, ";") {
			continue
		}
		segments := strings.Split(part, ";")
		urlPart := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(urlPart, "<") || !strings.HasSuffix(urlPart, ">") {
			continue
		}
		target := urlPart[1 : len(urlPart)-1]
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if rel, ok := strings.CutPrefix(param, "rel="); ok {
				links[strings.Trim(rel, `"`)] = target
			}
		}
	}
	return links
}

// eachRecord walks a paginated collection starting at path, invoking fn for
// every record in page order. Each call restarts from the first page. The
// first page goes through the full retry client; continuation pages are
// direct GETs against the absolute URL from the Link header's next relation,
// with their own rate-limit handling. Any non-success page is fatal for the
// walk.
func (c *Client) eachRecord(ctx context.Context, path string, query url.Values, fn func(json.RawMessage) error) error {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return apierrors.FromResponse(http.MethodGet, path, resp.StatusCode, resp.Body)
	}
	if err := yieldRecords(resp.Body, fn); err != nil {
		return err
	}

	next := parseLinkHeader(resp.Header.Get("Link"))["next"]
	for next != "" {
		pageResp, err := c.nextPage(ctx, next)
		if err != nil {
			return err
		}
		if !pageResp.OK() {
			return apierrors.FromResponse(http.MethodGet, next, pageResp.StatusCode, pageResp.Body)
		}
		if err := yieldRecords(pageResp.Body, fn); err != nil {
			return err
		}
		next = parseLinkHeader(pageResp.Header.Get("Link"))["next"]
	}

	return nil
}

// nextPage fetches a continuation page, waiting out rate limits before
// handing the response back.
func (c *Client) nextPage(ctx context.Context, rawURL string) (*Response, error) {
	for {
		resp, err := c.send(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		delay := nextPageRateLimitDelay
		if s, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && s >= 0 {
			delay = time.Duration(s+1) * time.Second
		}
		c.logger.Warn("rate limited on next page, waiting",
			zap.String("url", rawURL),
			zap.Duration("delay", delay))
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// yieldRecords feeds fn each element of a JSON array body, or the body itself
// when it is a single object.
func yieldRecords(body []byte, fn func(json.RawMessage) error) error {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(body, &records); err != nil {
			return err
		}
		for _, record := range records {
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	}
	return fn(json.RawMessage(body))
}
