package guesswhat

import (
	"testing"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		page, size string
		want       Page
	}{
		{"", "", Page{Number: 1, Size: 20}},
		{"3", "10", Page{Number: 3, Size: 10}},
		{"-1", "abc", Page{Number: 1, Size: 20}},
		{"2", "500", Page{Number: 2, Size: 100}},
	}

	for _, tc := range tests {
		if got := ParsePage(tc.page, tc.size, 100); got != tc.want {
			t.Errorf("ParsePage(%q, %q): expected %+v, got %+v", tc.page, tc.size, tc.want, got)
		}
	}

	if off := (Page{Number: 3, Size: 20}).Offset(); off != 40 {
		t.Errorf("expected offset 40, got %d", off)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{41, 20, 3},
		{40, 20, 2},
		{0, 20, 0},
		{1, 20, 1},
		{5, 0, 0},
	}

	for _, tc := range tests {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Errorf("TotalPages(%d, %d): expected %d, got %d", tc.total, tc.size, tc.want, got)
		}
	}
}

func TestParseSortFilter(t *testing.T) {
	for in, want := range map[string]SortFilter{
		"latest":      FilterLatest,
		"popularity":  FilterPopularity,
		"recommended": FilterRecommended,
		"":            FilterRecommended,
		"random":      FilterRecommended,
	} {
		if got := ParseSortFilter(in); got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestRankByVotes(t *testing.T) {
	items := []ListItem{{GameID: 1}, {GameID: 2}, {GameID: 3}, {GameID: 4}}
	ApplyVotes(items, map[int64]int64{2: 5, 4: 5, 3: 1})
	RankByVotes(items)

	want := []int64{2, 4, 3, 1}
	for i, id := range want {
		if items[i].GameID != id {
			t.Fatalf("position %d: expected game %d, got %+v", i, id, items)
		}
	}
	if items[3].Votes != 0 {
		t.Errorf("missing count should be 0, got %d", items[3].Votes)
	}
}
