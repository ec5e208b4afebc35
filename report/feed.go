// Package report renders stored Articles for people: syndication feeds and
// spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/gorilla/feeds"

	"github.com/brunobiangulo/georisk/store"
)

// Feed formats.
const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
)

// FeedInfo describes the generated feed itself.
type FeedInfo struct {
	Title       string
	Link        string
	Description string
	Updated     time.Time
}

// WriteFeed writes articles as an Atom or RSS feed, newest first.
func WriteFeed(w io.Writer, format string, info FeedInfo, articles []store.Article) error {
	feed := &feeds.Feed{
		Title:       info.Title,
		Link:        &feeds.Link{Href: info.Link},
		Description: info.Description,
		Updated:     info.Updated,
		Created:     info.Updated,
	}

	for i := len(articles) - 1; i >= 0; i-- {
		a := articles[i]
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("urn:georisk:article:%d", a.ID),
			Title:       ItemTitle(a),
			Link:        &feeds.Link{Href: a.Link},
			Description: a.History,
			Created:     a.Timestamp,
			Updated:     a.Timestamp,
		})
	}

	switch format {
	case FormatAtom, "":
		return feed.WriteAtom(w)
	case FormatRSS:
		return feed.WriteRss(w)
	default:
		return fmt.Errorf("unknown feed format %q", format)
	}
}

// ItemTitle prefixes a headline with its country, mineral, risk and hype.
func ItemTitle(a store.Article) string {
	return fmt.Sprintf("[%s/%s risk %d hype %d] %s", a.Country, a.Mineral, a.Risk, a.Hype, a.Title)
}
