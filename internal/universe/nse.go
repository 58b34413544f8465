package universe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"PivotScreener/internal/model"
)

// NSEProvider scrapes the derivatives underlyings listing page. It takes the
// first table, skips the header row, and reads the second column of each row.
type NSEProvider struct {
	URL       string
	Suffix    string
	UserAgent string
	proxyURL  string
	timeout   time.Duration
}

// NewNSEProvider creates a listing-page provider with optional proxy support.
func NewNSEProvider(listURL, suffix, userAgent, proxyURL string) *NSEProvider {
	return &NSEProvider{
		URL:       listURL,
		Suffix:    suffix,
		UserAgent: userAgent,
		proxyURL:  proxyURL,
		timeout:   30 * time.Second,
	}
}

func (p *NSEProvider) Name() string { return "nse" }

// newSession returns a client with a fresh cookie jar; the listing page only
// serves the table once session cookies are set.
func (p *NSEProvider) newSession() *http.Client {
	jar, _ := cookiejar.New(nil)
	transport := &http.Transport{}
	if p.proxyURL != "" {
		if u, err := url.Parse(p.proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Jar: jar, Timeout: p.timeout, Transport: transport}
}

func (p *NSEProvider) get(ctx context.Context, client *http.Client) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	return client.Do(req)
}

func (p *NSEProvider) Fetch(ctx context.Context) ([]string, error) {
	client := p.newSession()

	// Warm-up request to establish the session.
	if resp, err := p.get(ctx, client); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	resp, err := p.get(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w: %w", model.ErrUniverseUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch listing: status %d: %w", resp.StatusCode, model.ErrUniverseUnavailable)
	}

	raw, err := ParseListing(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w: %w", model.ErrUniverseUnavailable, err)
	}
	symbols := dedupe(raw, p.Suffix)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("listing has no symbols: %w", model.ErrUniverseUnavailable)
	}
	return symbols, nil
}

// ParseListing extracts the raw second-column text of every data row of the
// first table in an HTML document.
func ParseListing(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, fmt.Errorf("no table found")
	}

	var rows []*html.Node
	collect(table, atom.Tr, &rows)
	if len(rows) == 0 {
		return nil, nil
	}

	var symbols []string
	for _, row := range rows[1:] {
		var cells []*html.Node
		for c := row.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Td {
				cells = append(cells, c)
			}
		}
		if len(cells) < 2 {
			continue
		}
		if s := strings.TrimSpace(textOf(cells[1])); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// collect gathers nodes of type a under n without descending into nested tables.
func collect(n *html.Node, a atom.Atom, out *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == a {
			*out = append(*out, c)
			continue
		}
		if c.DataAtom == atom.Table {
			continue
		}
		collect(c, a, out)
	}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
