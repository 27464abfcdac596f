package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"archon/internal/logging"
	"archon/internal/models"
)

// CloudflareBaseURL is the Cloudflare v4 API root.
const CloudflareBaseURL = "https://api.cloudflare.com/client/v4"

const (
	cfPageSize = 1000
	// cfMaxPages stops a listing that never reaches its last page.
	cfMaxPages = 500
)

// Cloudflare manages the records of one zone through the Cloudflare API.
// The domain argument of each call is informational; the zone decides scope.
type Cloudflare struct {
	httpClient *http.Client
	baseURL    string
	token      string
	zoneID     string
}

type cfEnvelope struct {
	Result     json.RawMessage `json:"result"`
	ResultInfo *cfResultInfo   `json:"result_info"`
	Success    bool            `json:"success"`
	Errors     []cfError       `json:"errors"`
}

type cfResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

type cfError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type cfRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     uint32 `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

func newCloudflare(cfg models.CloudflareConfig, o options) *Cloudflare {
	h := o.httpClient
	if h == nil {
		h = &http.Client{Timeout: 30 * time.Second}
	}
	return &Cloudflare{
		httpClient: h,
		baseURL:    strings.TrimRight(o.cloudflareURL, "/"),
		token:      cfg.APIToken,
		zoneID:     cfg.ZoneID,
	}
}

func (c *Cloudflare) recordsURL() string {
	return fmt.Sprintf("%s/zones/%s/dns_records", c.baseURL, c.zoneID)
}

// ListRecords returns every record in the zone, following result_info
// pagination to the last page. Records of a type archon does not model are
// skipped.
func (c *Cloudflare) ListRecords(ctx context.Context, domain string) ([]models.DNSRecord, error) {
	var out []models.DNSRecord
	for page := 1; ; page++ {
		if page > cfMaxPages {
			return nil, fmt.Errorf("list records for %s: %w: more than %d pages", domain, ErrProvider, cfMaxPages)
		}
		url := fmt.Sprintf("%s?page=%d&per_page=%d", c.recordsURL(), page, cfPageSize)
		var raw []cfRecord
		info, err := c.do(ctx, http.MethodGet, url, nil, &raw)
		if err != nil {
			return nil, fmt.Errorf("list records for %s: %w", domain, err)
		}
		for _, r := range raw {
			rec, err := fromCloudflare(r)
			if err != nil {
				logging.DNSDebug("skipping record %s: %v", r.Name, err)
				continue
			}
			out = append(out, rec)
		}
		if info == nil || len(raw) == 0 || page >= info.TotalPages {
			break
		}
	}
	if out == nil {
		out = []models.DNSRecord{}
	}
	return out, nil
}

func (c *Cloudflare) CreateRecord(ctx context.Context, domain string, record models.DNSRecord) (models.DNSRecord, error) {
	var raw cfRecord
	if _, err := c.do(ctx, http.MethodPost, c.recordsURL(), toCloudflare(record), &raw); err != nil {
		return models.DNSRecord{}, fmt.Errorf("create record on %s: %w", domain, err)
	}
	return fromCloudflare(raw)
}

func (c *Cloudflare) UpdateRecord(ctx context.Context, domain string, record models.DNSRecord) (models.DNSRecord, error) {
	if record.ID == "" {
		return models.DNSRecord{}, fmt.Errorf("%w: cannot update record without ID", ErrProvider)
	}
	var raw cfRecord
	if _, err := c.do(ctx, http.MethodPut, c.recordsURL()+"/"+record.ID, toCloudflare(record), &raw); err != nil {
		return models.DNSRecord{}, fmt.Errorf("update record on %s: %w", domain, err)
	}
	return fromCloudflare(raw)
}

func (c *Cloudflare) DeleteRecord(ctx context.Context, domain string, recordID string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.recordsURL()+"/"+recordID, nil, nil); err != nil {
		return fmt.Errorf("delete record on %s: %w", domain, err)
	}
	return nil
}

// do sends one request and unwraps the Cloudflare envelope into v. It
// returns the envelope's pagination info, nil when absent.
func (c *Cloudflare) do(ctx context.Context, method, url string, body, v any) (*cfResultInfo, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", ErrProvider, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.DNSDebug("cloudflare %s %s", method, url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("%w: Cloudflare API error (%d): %s", ErrProvider, resp.StatusCode, msg)
	}

	var env cfEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to parse Cloudflare response: %v", ErrProvider, err)
	}
	if !env.Success {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
		}
		return nil, fmt.Errorf("%w: Cloudflare API errors: %s", ErrProvider, strings.Join(msgs, ", "))
	}
	if v == nil || len(env.Result) == 0 {
		return env.ResultInfo, nil
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		return nil, fmt.Errorf("%w: failed to parse Cloudflare result: %v", ErrProvider, err)
	}
	return env.ResultInfo, nil
}

func fromCloudflare(r cfRecord) (models.DNSRecord, error) {
	t, err := models.ParseRecordType(r.Type)
	if err != nil {
		return models.DNSRecord{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return models.DNSRecord{
		ID:      r.ID,
		Type:    t,
		Name:    r.Name,
		Value:   r.Content,
		TTL:     r.TTL,
		Proxied: r.Proxied,
	}, nil
}

func toCloudflare(r models.DNSRecord) cfRecord {
	return cfRecord{
		ID:      r.ID,
		Type:    string(r.Type),
		Name:    r.Name,
		Content: r.Value,
		TTL:     r.TTL,
		Proxied: r.Proxied,
	}
}
