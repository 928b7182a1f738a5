package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"b2bcatalog/internal/catalog"
)

// maxCSVBytes bounds a bulk export held in memory.
const maxCSVBytes = 256 << 20

type SearchParams struct {
	PerPage     int
	InStockOnly bool
	Categories  []string
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	if p.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}
	v.Set("in_stock_only", strconv.FormatBool(p.InStockOnly))
	if len(p.Categories) > 0 {
		v.Set("categories", strings.Join(p.Categories, ","))
	}
	return v
}

// Client calls the supplier's catalog endpoints with bearer tokens from a
// TokenManager. A 401 triggers one re-login and one retry, never more.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenManager
}

func NewClient(baseURL string, hc *http.Client, tokens *TokenManager) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, tokens: tokens}
}

// SearchPage fetches one page of the variant search. Authentication
// problems come back as *AuthenticationError; everything else as
// *TransientFetchError so the caller can skip the page.
func (c *Client) SearchPage(ctx context.Context, page int, p SearchParams) ([]catalog.RawProduct, error) {
	q := p.values()
	q.Set("page", strconv.Itoa(page))
	resp, err := c.getAuthorized(ctx, "/variants/search/?"+q.Encode())
	if err != nil {
		if IsAuth(err) {
			return nil, err
		}
		return nil, &TransientFetchError{Page: page, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransientFetchError{Page: page, Status: resp.StatusCode}
	}
	var body catalog.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &TransientFetchError{Page: page, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return body.Results, nil
}

// DownloadCSV fetches the whole filtered catalog export in one request.
// Any failure after the single auth retry is final.
func (c *Client) DownloadCSV(ctx context.Context, p SearchParams) ([]byte, error) {
	q := p.values()
	q.Del("per_page")
	resp, err := c.getAuthorized(ctx, "/variants/search/download/?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bulk download: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVBytes+1))
	if err != nil {
		return nil, fmt.Errorf("bulk download: %w", err)
	}
	if len(b) > maxCSVBytes {
		return nil, fmt.Errorf("bulk download: export larger than %d bytes", maxCSVBytes)
	}
	return b, nil
}

// TestConnection makes one cheap authenticated call, logging in first when
// no usable token is held.
func (c *Client) TestConnection(ctx context.Context) error {
	resp, err := c.getAuthorized(ctx, "/addresses/")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("supplier returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getAuthorized(ctx context.Context, path string) (*http.Response, error) {
	tok, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.get(ctx, path, tok)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	tok, err = c.tokens.Reauthenticate(ctx)
	if err != nil {
		return nil, err
	}
	resp, err = c.get(ctx, path, tok)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.tokens.Invalidate(ctx)
		return nil, &AuthenticationError{Op: "request", Status: http.StatusUnauthorized}
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/csv")
	return c.http.Do(req)
}
