package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/mapleads/models"
)

func main() {
	apiURL := os.Getenv("MAPLEADS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("MAPLEADS_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "MAPLEADS_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"mapleads",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_businesses",
		mcp.WithDescription("Search the map for businesses of a category in a location and return their contact details (address, phone, email, website, social profiles, rating). Runs a real browser and takes minutes for large result counts."),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Business category as typed in the map search box, e.g. 'restaurantes'"),
		),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("City or area to search in, e.g. 'Madrid'"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of businesses to extract (default: 20)"),
		),
	)
	s.AddTool(searchTool, handleSearch(apiURL, apiKey))

	batchTool := mcp.NewTool("batch_search",
		mcp.WithDescription("Run several business searches one after another and return a per-search summary. Repeated searches are served from cache."),
		mcp.WithArray("jobs",
			mcp.Required(),
			mcp.Description("Searches to run, in order"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category":    map[string]any{"type": "string"},
					"location":    map[string]any{"type": "string"},
					"max_results": map[string]any{"type": "number"},
				},
				"required": []string{"category", "location"},
			}),
		),
	)
	s.AddTool(batchTool, handleBatchSearch(apiURL, apiKey))

	emailTool := mcp.NewTool("find_email",
		mcp.WithDescription("Find a contact email address on a business website. Checks the home page and at most one contact page."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Website URL; the scheme may be omitted"),
		),
	)
	s.AddTool(emailTool, handleFindEmail(apiURL, apiKey))

	reportTool := mcp.NewTool("report",
		mcp.WithDescription("Summarize every business collected so far: counts of valid phones, emails, websites and coordinates, average rating, and records per search."),
	)
	s.AddTool(reportTool, handleReport(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the mapleads API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, apiURL, apiKey, path string, payload any) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollBatch polls a batch until it leaves the processing state or ctx is
// cancelled.
func pollBatch(ctx context.Context, client *http.Client, apiURL, apiKey, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, "/api/v1/batch/"+id, nil)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}
			var status models.BatchStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != models.BatchProcessing {
				return &status, nil
			}
		}
	}
}

func errorText(fallback string, detail *models.ErrorDetail) string {
	if detail == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", detail.Code, detail.Message)
}

func handleSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category, err := request.RequireString("category")
		if err != nil {
			return mcp.NewToolResultError("category is required"), nil
		}
		location, err := request.RequireString("location")
		if err != nil {
			return mcp.NewToolResultError("location is required"), nil
		}
		job := models.SearchJob{
			Category:   category,
			Location:   location,
			MaxResults: request.GetInt("max_results", 20),
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/search", models.SearchRequest{SearchJob: job})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search request failed: %v", err)), nil
		}

		var resp models.SearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success && len(resp.Records) == 0 {
			return mcp.NewToolResultError(errorText("search failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Search %q: %d businesses", job.Label(), len(resp.Records))
		if resp.Result != nil && resp.Result.FromCache {
			sb.WriteString(" (cached)")
		}
		if resp.Partial {
			sb.WriteString(" (partial: " + errorText("interrupted", resp.Error) + ")")
		}
		sb.WriteString("\n\n")
		sb.WriteString(formatRecords(resp.Records))
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleBatchSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobs, err := parseJobs(request.GetArguments()["jobs"])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/batch", models.BatchRequest{Jobs: jobs})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var created models.BatchResponse
		if err := json.Unmarshal(body, &created); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if created.ID == "" {
			return mcp.NewToolResultError(errorText("batch job creation failed", created.Error)), nil
		}

		status, err := pollBatch(ctx, client, apiURL, apiKey, created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatBatch(status)), nil
	}
}

func handleFindEmail(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/email", models.EmailRequest{URL: url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("email request failed: %v", err)), nil
		}

		var resp models.EmailResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("email lookup failed", resp.Error)), nil
		}
		if !resp.Found {
			return mcp.NewToolResultText("No email address found on " + url), nil
		}
		return mcp.NewToolResultText(resp.Email), nil
	}
}

func handleReport(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, "/api/v1/report", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("report request failed: %v", err)), nil
		}

		var summary models.Summary
		if err := json.Unmarshal(body, &summary); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse report: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSummary(summary)), nil
	}
}

// parseJobs converts the raw tool argument into search jobs.
func parseJobs(raw any) ([]models.SearchJob, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("jobs is required and must be a non-empty array")
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("invalid jobs: %w", err)
	}
	var jobs []models.SearchJob
	if err := json.Unmarshal(b, &jobs); err != nil {
		return nil, fmt.Errorf("invalid jobs: %w", err)
	}
	for i := range jobs {
		if jobs[i].MaxResults <= 0 {
			jobs[i].MaxResults = 20
		}
		if err := jobs[i].Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
	}
	return jobs, nil
}

func formatRecords(recs []models.BusinessRecord) string {
	var sb strings.Builder
	for i, r := range recs {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Name)
		field := func(label, v string) {
			if v != "" {
				fmt.Fprintf(&sb, "   %s: %s\n", label, v)
			}
		}
		field("Category", r.Category)
		field("Address", r.Address)
		field("Phone", r.Phone)
		field("Email", r.Email)
		field("Website", r.Website)
		field("Instagram", r.Instagram)
		field("Facebook", r.Facebook)
		if r.Rating != nil {
			reviews := ""
			if r.ReviewCount != nil {
				reviews = fmt.Sprintf(" (%d reviews)", *r.ReviewCount)
			}
			fmt.Fprintf(&sb, "   Rating: %.1f%s\n", *r.Rating, reviews)
		}
		if r.Location != nil {
			fmt.Fprintf(&sb, "   Location: %.6f,%.6f\n", r.Location.Lat, r.Location.Lng)
		}
	}
	return sb.String()
}

func formatBatch(status *models.BatchStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %s (%d searches)\n", status.ID, status.Status, status.Total)
	if status.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", status.Error)
	}
	if status.Outcome == nil {
		return sb.String()
	}
	sb.WriteString("\n")
	for i, r := range status.Outcome.Results {
		source := "browser"
		if r.FromCache {
			source = "cache"
		}
		fmt.Fprintf(&sb, "--- [%d] %s (%s): %d new, %d extracted, %d skipped ---\n",
			i+1, r.Job.Label(), source, r.Accepted, r.Extracted, r.Skipped)
		if r.Error != "" {
			fmt.Fprintf(&sb, "    FAILED: %s\n", r.Error)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(formatSummary(status.Outcome.Summary))
	return sb.String()
}

func formatSummary(s models.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total businesses: %d\n", s.Total)
	fmt.Fprintf(&sb, "With valid phone: %d\n", s.WithValidPhone)
	fmt.Fprintf(&sb, "With valid email: %d\n", s.WithValidEmail)
	fmt.Fprintf(&sb, "With valid website: %d\n", s.WithValidWebsite)
	fmt.Fprintf(&sb, "With valid coordinates: %d\n", s.WithValidCoordinates)
	fmt.Fprintf(&sb, "With rating: %d (average %.2f)\n", s.WithRating, s.AverageRating)
	fmt.Fprintf(&sb, "Unique categories: %d\n", s.UniqueCategories)
	for group, n := range s.Groups {
		fmt.Fprintf(&sb, "  %s: %d\n", group, n)
	}
	return sb.String()
}
