package tle

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

var errNoPre = errors.New("no <pre> element in page")

// ListingLinks returns the absolute URLs of all ".txt" feeds linked from a
// catalog listing page, in document order without duplicates.
func ListingLinks(page []byte, base *url.URL) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	var links []string
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(a.Val))
				if err != nil || !strings.EqualFold(path.Ext(ref.Path), ".txt") {
					continue
				}
				abs := ref.String()
				if base != nil {
					abs = base.ResolveReference(ref).String()
				}
				if !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// ExtractPre returns the text content of every <pre> element in an HTML
// page, joined by newlines. Single-record pages wrap the element lines this way.
func ExtractPre(page []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var out bytes.Buffer
	found := false
	var text func(n *html.Node)
	text = func(n *html.Node) {
		if n.Type == html.TextNode {
			out.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			text(c)
		}
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "pre" {
			if found {
				out.WriteByte('\n')
			}
			found = true
			text(n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !found {
		return nil, errNoPre
	}
	return out.Bytes(), nil
}

func looksLikeHTML(data []byte) bool {
	head := bytes.TrimSpace(data)
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<pre"))
}
