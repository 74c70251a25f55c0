package guesswhat

import (
	"cmp"
	"slices"
	"strconv"
)

const (
	// DefaultPageSize is used when a list request has no usable size.
	DefaultPageSize = 20

	// AnonymousCreator is shown for games whose creator has no email.
	AnonymousCreator = "Anonymous"
)

// SortFilter selects the order of the game list.
type SortFilter string

const (
	// FilterRecommended orders a page by vote count. It is the default.
	FilterRecommended SortFilter = "recommended"

	// FilterLatest orders by creation time, newest first.
	FilterLatest SortFilter = "latest"

	// FilterPopularity orders by title then id.
	FilterPopularity SortFilter = "popularity"
)

// ParseSortFilter maps a query value to a filter, defaulting to recommended.
func ParseSortFilter(s string) SortFilter {
	switch SortFilter(s) {
	case FilterLatest, FilterPopularity:
		return SortFilter(s)
	default:
		return FilterRecommended
	}
}

// Page is a one-based page request.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads page and size query values. Missing or invalid values fall
// back to page 1 and DefaultPageSize; size is capped at maxSize when positive.
func ParsePage(pageRaw, sizeRaw string, maxSize int) Page {
	p := Page{Number: 1, Size: DefaultPageSize}
	if n, err := strconv.Atoi(pageRaw); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(sizeRaw); err == nil && n > 0 {
		p.Size = n
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}

	return p
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages is ceil(total/size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}

	return int((total + int64(size) - 1) / int64(size))
}

// ListItem is one game card in the public list.
type ListItem struct {
	GameID       int64    `json:"gameId"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Title        string   `json:"title"`
	Tags         []string `json:"tags"`
	Creator      string   `json:"creator"`
	Votes        int64    `json:"votes"`
}

// ListPage is the response of the game list.
type ListPage struct {
	Size        int        `json:"size"`
	Page        int        `json:"page"`
	TotalPage   int        `json:"totalPage"`
	TotalNumber int64      `json:"totalNumber"`
	Games       []ListItem `json:"games"`
}

// ApplyVotes copies counts onto items, missing ids counting zero.
func ApplyVotes(items []ListItem, counts map[int64]int64) {
	for i := range items {
		items[i].Votes = counts[items[i].GameID]
	}
}

// RankByVotes sorts one page by votes descending, keeping the fetched order
// among equal counts. Only the given page is ranked, not the whole table.
func RankByVotes(items []ListItem) {
	slices.SortStableFunc(items, func(a, b ListItem) int {
		return cmp.Compare(b.Votes, a.Votes)
	})
}
