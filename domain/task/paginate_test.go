package task

import (
	"math"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate_PartitionsEveryItemOnce(t *testing.T) {
	for n := 0; n <= 12; n++ {
		for size := 1; size <= 5; size++ {
			items := seq(n)
			first := Paginate(items, 1, size)
			wantPages := (n + size - 1) / size
			if first.TotalPages != wantPages {
				t.Fatalf("n=%d size=%d: TotalPages = %d, want %d", n, size, first.TotalPages, wantPages)
			}

			seen := make(map[int]bool)
			count := 0
			for p := 1; p <= wantPages; p++ {
				page := Paginate(items, p, size)
				for _, it := range page.Items {
					if seen[it] {
						t.Fatalf("n=%d size=%d: item %d appears on more than one page", n, size, it)
					}
					seen[it] = true
					count++
				}
			}
			if count != n {
				t.Errorf("n=%d size=%d: pages hold %d items, want %d", n, size, count, n)
			}
		}
	}
}

func TestPaginate_ZeroPageSizeReturnsAll(t *testing.T) {
	items := seq(7)
	page := Paginate(items, 1, 0)
	if len(page.Items) != 7 {
		t.Errorf("len(Items) = %d, want 7", len(page.Items))
	}
	if page.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", page.TotalPages)
	}
	if page.PageSize != 7 {
		t.Errorf("PageSize = %d, want 7", page.PageSize)
	}
	if page.HasNext || page.HasPrevious {
		t.Errorf("HasNext=%v HasPrevious=%v, want both false", page.HasNext, page.HasPrevious)
	}
}

func TestPaginate_SecondPageOfThree(t *testing.T) {
	page := Paginate(seq(3), 2, 2)
	if len(page.Items) != 1 || page.Items[0] != 3 {
		t.Errorf("Items = %v, want [3]", page.Items)
	}
	if !page.HasPrevious {
		t.Error("HasPrevious = false, want true")
	}
	if page.HasNext {
		t.Error("HasNext = true, want false")
	}
	if page.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", page.TotalPages)
	}
	if page.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", page.TotalCount)
	}
}

func TestPaginate_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		n          int
		pageNumber int
		pageSize   int
		wantItems  int
		wantNumber int
		wantPages  int
	}{
		{"page below one clamps", 5, 0, 2, 2, 1, 3},
		{"negative page clamps", 5, -3, 2, 2, 1, 3},
		{"past the end is empty", 5, 9, 2, 0, 9, 3},
		{"negative size means all", 5, 1, -1, 5, 1, 1},
		{"empty set", 0, 1, 3, 0, 1, 0},
		{"empty set with zero size", 0, 1, 0, 0, 1, 0},
		{"max size holds everything", 3, 1, math.MaxInt, 3, 1, 1},
		{"max size second page is empty", 3, 2, math.MaxInt, 0, 2, 1},
		{"max size on empty set", 0, 1, math.MaxInt, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Paginate(seq(tt.n), tt.pageNumber, tt.pageSize)
			if page.Items == nil {
				t.Fatal("Items is nil")
			}
			if len(page.Items) != tt.wantItems {
				t.Errorf("len(Items) = %d, want %d", len(page.Items), tt.wantItems)
			}
			if page.PageNumber != tt.wantNumber {
				t.Errorf("PageNumber = %d, want %d", page.PageNumber, tt.wantNumber)
			}
			if page.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", page.TotalPages, tt.wantPages)
			}
		})
	}
}

func TestPaginate_MaxPageSizeHasNoNextPage(t *testing.T) {
	page := Paginate(seq(3), 1, math.MaxInt)
	if page.TotalPages != 1 {
		t.Fatalf("TotalPages = %d, want 1", page.TotalPages)
	}
	if page.HasNext || page.HasPrevious {
		t.Errorf("HasPrevious = %v, HasNext = %v, want both false", page.HasPrevious, page.HasNext)
	}
	if len(page.Items) != 3 || page.Items[0] != 1 || page.Items[2] != 3 {
		t.Errorf("Items = %v, want [1 2 3]", page.Items)
	}
}

func TestMapPage(t *testing.T) {
	page := Paginate(fixture(), 1, 2)
	titles := MapPage(page, func(t Task) string { return t.Title })
	if len(titles.Items) != 2 || titles.Items[0] != "Test Eintrag 1" {
		t.Errorf("MapPage items = %v", titles.Items)
	}
	if titles.TotalCount != 3 || !titles.HasNext {
		t.Errorf("MapPage lost metadata: %+v", titles)
	}
}
