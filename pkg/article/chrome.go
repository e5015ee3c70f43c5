package article

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/wilhg/xmcp/pkg/errmodel"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// extractJS collects title, author and paragraph text from a rendered page.
const extractJS = `(() => {
  const selectors = ['article[data-testid="article"]', '[data-testid="article-content"]',
                     'article', '[role="article"]', '.article-content', 'main'];
  let root = null;
  for (const s of selectors) {
    root = document.querySelector(s);
    if (root) break;
  }
  if (!root) root = document.body;
  const title = document.querySelector('h1') || document.querySelector('[data-testid="article-title"]');
  const author = document.querySelector('[data-testid="User-Name"]') || document.querySelector('a[href*="/"]');
  const blocks = root.querySelectorAll('p, h1, h2, h3, h4, h5, h6, li');
  const text = Array.from(blocks).map(b => b.innerText.trim()).filter(t => t.length > 0).join('\n\n');
  return {
    title: title ? title.innerText : '',
    author: author ? author.innerText : '',
    content: text || root.innerText,
    url: window.location.href
  };
})()`

// chromeCandidates are the executables searched on PATH, in order.
var chromeCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"/usr/bin/google-chrome",
	"/snap/bin/chromium",
	"chrome",
}

// Chrome renders pages with a headless Chrome, either a local executable or
// a remote DevTools endpoint.
type Chrome struct {
	remoteURL string
	settle    time.Duration
	lookPath  func(string) (string, error)
}

// NewChrome returns a Chrome browser. An empty remoteURL launches a local
// executable per fetch.
func NewChrome(remoteURL string) *Chrome {
	return &Chrome{remoteURL: remoteURL, settle: 3 * time.Second, lookPath: exec.LookPath}
}

func (c *Chrome) execPath() (string, bool) {
	for _, name := range chromeCandidates {
		if p, err := c.lookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}

// Available reports whether a browser can be reached without launching it.
func (c *Chrome) Available() error {
	if c.remoteURL != "" {
		return nil
	}
	if _, ok := c.execPath(); !ok {
		return errmodel.DependencyMissing("chromium",
			"Install Chromium or Google Chrome, or set XMCP_CHROME_URL to a DevTools endpoint",
			"https://www.chromium.org/getting-involved/download-chromium/")
	}
	return nil
}

// Extract navigates to url and returns the extracted content.
func (c *Chrome) Extract(ctx context.Context, url string) (Extracted, error) {
	var out Extracted
	if err := c.Available(); err != nil {
		return out, err
	}
	var (
		allocCtx context.Context
		cancel   context.CancelFunc
	)
	if c.remoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(ctx, c.remoteURL)
	} else {
		path, _ := c.execPath()
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(path),
			chromedp.UserAgent(userAgent),
		)
		allocCtx, cancel = chromedp.NewExecAllocator(ctx, opts...)
	}
	defer cancel()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.settle),
		chromedp.Evaluate(extractJS, &out),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out loading page: %w", err)
		}
		return Extracted{}, errmodel.ArticleFetchFailed(url, err)
	}
	return out, nil
}
