package web

import (
	"encoding/xml"
	"net/http"

	"go.uber.org/zap"
)

// feedFloor is the feed's updated timestamp when no post is newer.
const feedFloor = "2024-01-19T18:00:00Z"

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	XMLNS   string      `xml:"xmlns,attr"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Link    atomLink    `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomEntry struct {
	Title   string   `xml:"title"`
	ID      string   `xml:"id"`
	Updated string   `xml:"updated"`
	Link    atomLink `xml:"link"`
	Summary string   `xml:"summary,omitempty"`
}

// handleFeed serves the Atom feed of blog posts. The snapshot is read
// per request, so a content reload is reflected on the next fetch.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	snap := s.content.Snapshot()
	base := "https://" + s.cfg.Domain

	feed := atomFeed{
		XMLNS:   "http://www.w3.org/2005/Atom",
		Title:   s.cfg.Domain,
		ID:      base + "/",
		Updated: feedFloor,
		Link:    atomLink{Href: base + "/feed.xml", Rel: "self"},
	}
	for _, p := range snap.Posts {
		// Post dates are day-granular; timestamps share one format so
		// the lexical comparison below is chronological.
		updated := p.Date + "T00:00:00Z"
		if updated > feed.Updated {
			feed.Updated = updated
		}
		feed.Entries = append(feed.Entries, atomEntry{
			Title:   p.Title,
			ID:      base + "/blog/" + p.URL,
			Updated: updated,
			Link:    atomLink{Href: base + "/blog/" + p.URL},
			Summary: p.Markdown,
		})
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(feed); err != nil {
		s.log.Error("encode feed", zap.Error(err))
	}
}
