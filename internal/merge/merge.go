// Package merge implements the Merger (§4.8): it combines the Web Agent's
// and RAG Retriever's evidence lists into one, dropping duplicate URLs and
// homepage-shaped URLs that carry no specific claim-relevant content.
package merge

import (
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/urlutil"
)

// Merge combines one or more evidence lists, preserving the order items
// first appear in, dropping exact URL duplicates, and dropping any item
// whose URL looks like a homepage or section front page rather than a
// specific article (§4.8).
func Merge(lists ...[]model.EvidenceItem) []model.EvidenceItem {
	seen := make(map[string]bool)
	var out []model.EvidenceItem
	for _, list := range lists {
		for _, item := range list {
			if item.URL == "" || seen[item.URL] {
				continue
			}
			if urlutil.IsHomepage(item.URL) {
				continue
			}
			seen[item.URL] = true
			out = append(out, item)
		}
	}
	return out
}
