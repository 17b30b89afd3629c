package scrape

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"roomsync/normalize"
)

const messageCenterPath = "/Default/Lists/Environment/GetMessageCenterNotifications"

var hrefPattern = regexp.MustCompile(`href=['"]([^'"]+)['"]`)

// exportClickJS triggers the CSV export of the current result list.
const exportClickJS = `(() => {
	const btn = Array.from(document.querySelectorAll('a,button,input[type="button"]'))
		.find(el => /export|bericht/i.test((el.textContent || el.value || '') + (el.title || '')));
	if (!btn) return false;
	btn.click();
	return true;
})()`

// fetchExport runs the CSV export path: trigger the export, poll the
// message center until the report link appears, download and decode it.
func (s *Scraper) fetchExport(ctx context.Context) (normalize.RawBatch, error) {
	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(exportClickJS, &clicked)); err != nil {
		return normalize.RawBatch{}, err
	}
	if !clicked {
		return normalize.RawBatch{}, fmt.Errorf("export control not found")
	}

	link, err := s.waitForReportLink(ctx)
	if err != nil {
		return normalize.RawBatch{}, err
	}

	data, err := s.download(ctx, link)
	if err != nil {
		return normalize.RawBatch{}, err
	}
	batch, err := ParseCSV(data)
	if err != nil {
		return normalize.RawBatch{}, err
	}
	return cleanBatch(batch), nil
}

// waitForReportLink polls the message center notifications until a
// report link shows up. The JSON is fetched inside the page so the
// browser session does the authentication.
func (s *Scraper) waitForReportLink(ctx context.Context) (string, error) {
	fetchJS := fmt.Sprintf(
		`fetch(%q, {credentials: "include"}).then(r => r.text())`,
		s.opts.BaseURL+messageCenterPath)

	deadline := time.Now().Add(45 * time.Second)
	for time.Now().Before(deadline) {
		var body string
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(fetchJS, &body, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}),
		); err != nil {
			return "", fmt.Errorf("poll message center: %w", err)
		}
		if links := ReportLinks(body, s.opts.BaseURL); len(links) > 0 {
			return links[0], nil
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(2*time.Second)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("report link did not appear")
}

// ReportLinks extracts export report URLs from a message-center
// notification payload. Each notification wraps an HTML snippet whose
// anchor points at the generated report.
func ReportLinks(payload, base string) []string {
	messages := gjson.Parse(payload)
	for _, key := range []string{"data", "items", "Messages"} {
		if arr := messages.Get(key); arr.IsArray() {
			messages = arr
			break
		}
	}
	if !messages.IsArray() {
		return nil
	}

	var links []string
	messages.ForEach(func(_, msg gjson.Result) bool {
		html := msg.Get("Message").String()
		if html == "" {
			html = msg.Get("message").String()
		}
		if html == "" {
			html = msg.String()
		}
		for _, m := range hrefPattern.FindAllStringSubmatch(html, -1) {
			href := m[1]
			if !strings.Contains(href, "/Default/Reports/Environment/Report/") {
				continue
			}
			if !strings.HasPrefix(href, "http") {
				href = base + href
			}
			links = append(links, href)
		}
		return true
	})
	return links
}

// download fetches the report with the browser's cookies so the
// authenticated session carries over to the plain HTTP client.
func (s *Scraper) download(ctx context.Context, url string) ([]byte, error) {
	var cookieHeader string
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().WithUrls([]string{url}).Do(ctx)
		if err != nil {
			return err
		}
		parts := make([]string, 0, len(cookies))
		for _, c := range cookies {
			parts = append(parts, c.Name+"="+c.Value)
		}
		cookieHeader = strings.Join(parts, "; ")
		return nil
	})); err != nil {
		return nil, fmt.Errorf("collect cookies: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download report: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	log.Printf("scrape: downloaded report (%d bytes)", len(data))
	return data, nil
}
