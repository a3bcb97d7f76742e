// Package preview finds the images a web page advertises for link previews.
package preview

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Source names where a candidate was found.
type Source string

const (
	SourceOpenGraph Source = "og:image"
	SourceOGURL     Source = "og:image:url"
	SourceTwitter   Source = "twitter:image"
	SourceImageSrc  Source = "image_src"
	SourceImg       Source = "img"
	SourceSelf      Source = "self" // the page URL serves an image
)

var priority = map[Source]int{
	SourceOpenGraph: 0,
	SourceOGURL:     1,
	SourceTwitter:   2,
	SourceImageSrc:  3,
	SourceImg:       4,
}

type Candidate struct {
	URL    string `json:"url"`
	Source Source `json:"source"`
}

// Extract returns up to limit absolute http(s) image URLs from the document
// in r, ordered by source priority and then document order. Relative URLs
// resolve against base, or against <base href> when the page sets one.
// limit <= 0 means no limit.
func Extract(r io.Reader, base *url.URL, limit int) []Candidate {
	z := html.NewTokenizer(r)
	buckets := make([][]Candidate, len(priority))
	seen := make(map[string]bool)

	add := func(src Source, raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return
		}
		abs := ref
		if base != nil {
			abs = base.ResolveReference(ref)
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		s := abs.String()
		if seen[s] {
			return
		}
		seen[s] = true
		buckets[priority[src]] = append(buckets[priority[src]], Candidate{URL: s, Source: src})
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		attrs := attrMap(z)

		switch string(name) {
		case "base":
			if href, ok := attrs["href"]; ok {
				if u, err := url.Parse(href); err == nil {
					if base != nil {
						u = base.ResolveReference(u)
					}
					base = u
				}
			}
		case "meta":
			key := attrs["property"]
			if key == "" {
				key = attrs["name"]
			}
			switch Source(strings.ToLower(key)) {
			case SourceOpenGraph:
				add(SourceOpenGraph, attrs["content"])
			case SourceOGURL, "og:image:secure_url":
				add(SourceOGURL, attrs["content"])
			case SourceTwitter, "twitter:image:src":
				add(SourceTwitter, attrs["content"])
			}
		case "link":
			for _, rel := range strings.Fields(strings.ToLower(attrs["rel"])) {
				if rel == "image_src" {
					add(SourceImageSrc, attrs["href"])
				}
			}
		case "img":
			add(SourceImg, attrs["src"])
		}
	}

	var out []Candidate
	for _, b := range buckets {
		out = append(out, b...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func attrMap(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		k := string(key)
		if _, dup := attrs[k]; !dup {
			attrs[k] = string(val)
		}
		if !more {
			return attrs
		}
	}
}
