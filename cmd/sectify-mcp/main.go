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
)

// scrapeRequest mirrors the Sectify API request model.
type scrapeRequest struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout,omitempty"`
	MaxAge  int    `json:"max_age,omitempty"`
}

// scrapeResponse mirrors the Sectify API response model.
type scrapeResponse struct {
	URL        string `json:"url"`
	SourceMode string `json:"sourceMode"`
	Metadata   struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SiteName    string `json:"siteName"`
	} `json:"metadata"`
	Sections []struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Label    string `json:"label"`
		Text     string `json:"text"`
		Markdown string `json:"markdown"`
	} `json:"sections"`
	Interactions []struct {
		Kind         string `json:"kind"`
		Target       string `json:"target"`
		ResultingURL string `json:"resultingUrl"`
	} `json:"interactions"`
	Errors []struct {
		Phase   string `json:"phase"`
		Message string `json:"message"`
	} `json:"errors"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("SECTIFY_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SECTIFY_API_KEY")

	s := server.NewMCPServer(
		"sectify",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeSectionsTool := mcp.NewTool("scrape_sections",
		mcp.WithDescription("Scrape a web page into typed, labeled sections (nav, hero, pricing, faq, ...). Renders JavaScript-heavy pages with a headless browser and clicks through tabs, load-more buttons and pagination to reveal hidden content."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Maximum seconds for the whole scrape (default: 90, max: 180)"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Return a cached result younger than this many milliseconds instead of re-scraping (default: 0, disabled)"),
		),
	)
	s.AddTool(scrapeSectionsTool, handleScrapeSections(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapeSections(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 200 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:     url,
			Timeout: request.GetInt("timeout", 0),
			MaxAge:  request.GetInt("max_age", 0),
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/scrape", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if scrapeResp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", scrapeResp.Error.Code, scrapeResp.Error.Message)), nil
		}

		return mcp.NewToolResultText(formatSections(&scrapeResp)), nil
	}
}

// formatSections renders the API response as readable text: metadata header,
// one block per section, then the interaction log and any phase errors.
func formatSections(r *scrapeResponse) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Title: %s\nSource: %s (%s)\n", r.Metadata.Title, r.URL, r.SourceMode))
	if r.Metadata.Description != "" {
		sb.WriteString("Description: " + r.Metadata.Description + "\n")
	}
	sb.WriteString("\n")

	for _, sec := range r.Sections {
		sb.WriteString(fmt.Sprintf("--- [%s] %s ---\n", sec.Type, sec.Label))
		if sec.Markdown != "" {
			sb.WriteString(sec.Markdown)
		} else {
			sb.WriteString(sec.Text)
		}
		sb.WriteString("\n\n")
	}

	if len(r.Interactions) > 0 {
		sb.WriteString("Interactions:\n")
		for _, ev := range r.Interactions {
			if ev.ResultingURL != "" {
				sb.WriteString(fmt.Sprintf("  %s %s -> %s\n", ev.Kind, ev.Target, ev.ResultingURL))
			} else {
				sb.WriteString(fmt.Sprintf("  %s %s\n", ev.Kind, ev.Target))
			}
		}
	}

	if len(r.Errors) > 0 {
		sb.WriteString("Warnings:\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", e.Phase, e.Message))
		}
	}

	return sb.String()
}
