package service

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"fastsize/internal/fetch"
	"fastsize/internal/preview"
)

// Item is the outcome for one URL of a batch.
type Item struct {
	URL    string
	Result Result
	Err    error
}

// ProbeBatch probes urls with bounded concurrency. Items keep input order and
// a failed URL never stops the others.
func (s *Service) ProbeBatch(ctx context.Context, urls []string) []Item {
	items := make([]Item, len(urls))
	var g errgroup.Group
	g.SetLimit(s.opts.BatchConcurrency)
	for i, u := range urls {
		items[i].URL = u
		g.Go(func() error {
			items[i].Result, items[i].Err = s.Probe(ctx, u)
			return nil
		})
	}
	g.Wait()
	return items
}

// PreviewResult lists the images a page advertises, each probed.
type PreviewResult struct {
	URL        string
	Candidates []preview.Candidate
	Items      []Item
}

// Best returns the first candidate that probed successfully.
func (p *PreviewResult) Best() (Item, bool) {
	for _, it := range p.Items {
		if it.Err == nil {
			return it, true
		}
	}
	return Item{}, false
}

// Preview fetches the head of an HTML page and probes the images it
// advertises. A URL that already serves an image is probed directly.
func (s *Service) Preview(ctx context.Context, pageURL string) (*PreviewResult, error) {
	page, err := fetch.GetPage(ctx, s.client, pageURL, fetch.MaxPageBytes, s.opts.UserAgent)
	if err != nil {
		return nil, err
	}
	if s.traffic != nil {
		s.traffic.Add(len(page.Body), s.now())
	}

	out := &PreviewResult{URL: page.URL.String()}
	if strings.HasPrefix(page.ContentType, "image/") {
		out.Candidates = []preview.Candidate{{URL: out.URL, Source: preview.SourceSelf}}
	} else {
		out.Candidates = preview.Extract(bytes.NewReader(page.Body), page.URL, s.opts.PreviewCandidates)
	}

	urls := make([]string, len(out.Candidates))
	for i, c := range out.Candidates {
		urls[i] = c.URL
	}
	out.Items = s.ProbeBatch(ctx, urls)
	return out, nil
}
