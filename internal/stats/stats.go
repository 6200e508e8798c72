package stats

import (
	"context"
	"sort"

	"linkkeeper/internal/storage"
	"linkkeeper/internal/utils"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Entry struct {
	Name  string
	Count int
}

type Report struct {
	Total         int
	TopCategories []Entry
	TopDomains    []Entry
	TopAuthors    []Entry
}

// Report summarizes a guild's saved links. Top lists are capped at limit
// entries each, sorted by count then name for stable output.
func (s *Service) Report(ctx context.Context, guildID string, limit int) (Report, error) {
	links, err := s.store.ListSavedLinks(ctx, guildID, "")
	if err != nil {
		return Report{}, err
	}

	categories := make(map[string]int)
	domains := make(map[string]int)
	authors := make(map[string]int)
	for _, link := range links {
		categories[link.Category]++
		if domain := utils.Domain(link.URL); domain != "" {
			domains[domain]++
		}
		authors[link.Author]++
	}

	return Report{
		Total:         len(links),
		TopCategories: top(categories, limit),
		TopDomains:    top(domains, limit),
		TopAuthors:    top(authors, limit),
	}, nil
}

func top(counts map[string]int, limit int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, Entry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
