// Package apkportal scrapes an APK mirror site for the latest
// published Roblox client version.
package apkportal

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gamevault-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/scrapers/apkportal")

const defaultBaseURL = "https://apkcombo.com/roblox/com.roblox.client/"

type Options struct {
	// BaseURL is the app page to scrape. Zero means the APKCombo
	// Roblox page.
	BaseURL string
	// Attempts bounds retries on pages that render without a version.
	// Zero means 3.
	Attempts int
	// Delay between attempts. Zero means 5s.
	Delay time.Duration
}

type Client struct {
	http     *resty.Client
	attempts int
	delay    time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay == 0 {
		opts.Delay = 5 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "lib/scrapers/apkportal")

	return &Client{
		http:     client,
		attempts: opts.Attempts,
		delay:    opts.Delay,
	}
}

var (
	bundleVersionRegex = regexp.MustCompile(`Roblox[_-](\d+\.\d+\.\d+)`)
	looseVersionRegex  = regexp.MustCompile(`\d+\.\d+\.\d+`)
)

// ValidVersion reports whether a version string matches the client
// release scheme: three numeric parts with a major of 2.
func ValidVersion(version string) bool {
	parts := strings.Split(version, ".")
	if len(parts) != 3 || parts[0] != "2" {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		if _, err := strconv.Atoi(part); err != nil {
			return false
		}
	}
	return true
}

// LatestVersion scrapes the portal page and returns the advertised
// client version. Pages occasionally render without one, so it
// retries a few times before giving up.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "LatestVersion")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		version, err := c.scrapeVersion(ctx)
		if err == nil {
			return version, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "version scrape attempt failed",
			"attempt", attempt,
			"attempts", c.attempts,
			"err", err,
		)
		if attempt < c.attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.delay):
			}
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return "", lastErr
}

func (c *Client) scrapeVersion(ctx context.Context) (string, error) {
	res, err := c.http.R().SetContext(ctx).Get("")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("portal returned %s", res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return "", fmt.Errorf("parse portal page: %w", err)
	}

	// download links carry the bundle filename in a base64 url param
	version := versionFromDownloadLinks(doc)
	if version == "" {
		version = versionFromPageText(doc)
	}
	if version == "" {
		return "", fmt.Errorf("no version found on portal page")
	}
	return version, nil
}

func versionFromDownloadLinks(doc *goquery.Document) string {
	var version string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		encoded := u.Query().Get("url")
		if encoded == "" {
			return true
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return true
		}
		match := bundleVersionRegex.FindSubmatch(decoded)
		if match == nil {
			return true
		}
		version = string(match[1])
		return false
	})
	return version
}

func versionFromPageText(doc *goquery.Document) string {
	text := doc.Find("div.version").First().Text()
	if match := looseVersionRegex.FindString(text); match != "" {
		return match
	}
	return looseVersionRegex.FindString(doc.Text())
}
