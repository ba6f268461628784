// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package wiki

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Field is one label/value row of a track's info box.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Link is one download link.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// LinkField is an info box row that holds links ("WBZ files", "Download").
type LinkField struct {
	Label string `json:"label"`
	Links []Link `json:"links"`
}

// TrackPage is the parsed wiki page of one custom track.
type TrackPage struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Fields      []Field     `json:"fields"`
	Downloads   []LinkField `json:"downloads,omitempty"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// Field returns the value of the info box row labelled label.
func (p *TrackPage) Field(label string) (string, bool) {
	for _, f := range p.Fields {
		if strings.EqualFold(f.Label, label) {
			return f.Value, true
		}
	}
	return "", false
}

// pageName turns a title into its page path segment.
func pageName(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// ParseTrackPage reads the info box (the first table) and the lead paragraph.
//
// The table caption is the track name. Each row becomes a Field, except rows
// about editors, which are dropped, and "WBZ files"/"Download" rows, which
// become link lists. pageURL resolves relative links.
func ParseTrackPage(body []byte, pageURL string) (*TrackPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: page has no info box", ErrMalformedResponse)
	}

	page := &TrackPage{
		URL:       pageURL,
		Name:      cleanText(table.Find("caption").First().Text()),
		FetchedAt: time.Now().UTC(),
	}

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(table) {
			return
		}
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() < 2 {
			return
		}

		label := strings.ReplaceAll(cleanText(cells.Eq(0).Text()), ":", "")
		label = strings.TrimSpace(label)
		value := cells.Eq(1)

		switch {
		case label == "":
			return
		case strings.Contains(label, "Editors"):
			return
		case strings.Contains(label, "WBZ files") || strings.Contains(label, "Download"):
			if links := parseLinks(value, base); len(links) > 0 {
				page.Downloads = append(page.Downloads, LinkField{Label: label, Links: links})
			}
		default:
			page.Fields = append(page.Fields, Field{Label: label, Value: cleanText(value.Text())})
		}
	})

	page.Description = cleanText(doc.Find("#mw-content-text p").First().Text())

	return page, nil
}

// parseLinks returns one link per list item, or a single link for the whole
// cell when it has no list. Items without an href are dropped.
func parseLinks(cell *goquery.Selection, base *url.URL) []Link {
	var links []Link

	items := cell.Find("li")
	if items.Length() == 0 {
		if l, ok := linkFrom(cell, base); ok {
			links = append(links, l)
		}
		return links
	}

	items.Each(func(_ int, li *goquery.Selection) {
		if l, ok := linkFrom(li, base); ok {
			links = append(links, l)
		}
	})
	return links
}

func linkFrom(s *goquery.Selection, base *url.URL) (Link, bool) {
	href, ok := s.Find("a[href]").First().Attr("href")
	if !ok {
		return Link{}, false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return Link{}, false
	}
	return Link{Text: cleanText(s.Text()), URL: base.ResolveReference(ref).String()}, true
}

// cleanText drops newlines and collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
