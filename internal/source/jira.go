package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/estimatelens/estimatelens/internal/config"
	"github.com/estimatelens/estimatelens/pkg/types"
)

const searchPath = "/rest/api/2/search"

// jiraSource pages through the Jira search API.
type jiraSource struct {
	src    config.Source
	client *http.Client
}

// searchPage is the subset of the search response we read.
type searchPage struct {
	StartAt    int              `json:"startAt"`
	MaxResults int              `json:"maxResults"`
	Total      int              `json:"total"`
	Issues     []types.RawIssue `json:"issues"`
}

func (s *jiraSource) ID() string { return s.src.ID }

// Fetch returns every issue matching the configured JQL, up to MaxIssues.
func (s *jiraSource) Fetch(ctx context.Context) ([]types.RawIssue, error) {
	pageSize := s.src.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	limit := s.src.MaxIssues

	var out []types.RawIssue
	for startAt := 0; ; {
		page, err := s.page(ctx, startAt, pageSize)
		if err != nil {
			return nil, fmt.Errorf("source %q: startAt=%d: %w", s.src.ID, startAt, err)
		}
		out = append(out, page.Issues...)
		startAt += len(page.Issues)

		slog.Debug("source: jira page", "source", s.src.ID,
			"start_at", page.StartAt, "got", len(page.Issues), "total", page.Total)

		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			break
		}
		// Jira may cap maxResults below what was asked for; the echoed
		// value is the real page size.
		effective := pageSize
		if page.MaxResults > 0 && page.MaxResults < effective {
			effective = page.MaxResults
		}
		if len(page.Issues) == 0 || len(page.Issues) < effective || startAt >= page.Total {
			break
		}
	}
	return out, nil
}

func (s *jiraSource) page(ctx context.Context, startAt, pageSize int) (*searchPage, error) {
	q := url.Values{}
	if s.src.JQL != "" {
		q.Set("jql", s.src.JQL)
	}
	q.Set("startAt", strconv.Itoa(startAt))
	q.Set("maxResults", strconv.Itoa(pageSize))
	q.Set("fields", "*all")
	u := strings.TrimRight(s.src.Endpoint, "/") + searchPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page searchPage
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &page, nil
}
