package pagination

import "testing"

func TestCursorRoundTrip(t *testing.T) {
	encoded := EncodeCursor(Cursor{ID: 42})
	cursor, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cursor == nil || cursor.ID != 42 {
		t.Fatalf("expected id 42, got %+v", cursor)
	}
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	cursor, err := ParseCursor("  ")
	if err != nil || cursor != nil {
		t.Fatalf("expected nil cursor for blank input, got %+v err=%v", cursor, err)
	}
	if _, err := ParseCursor("!!!"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := ParseCursor(EncodeCursor(Cursor{ID: 0})); err == nil {
		t.Fatal("expected error for non-positive id")
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBuildSetsNextCursorOnlyWhenMoreRows(t *testing.T) {
	idOf := func(v int64) int64 { return v }

	page := Build([]int64{9, 8, 7}, 2, idOf)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected trimmed page with cursor, got %+v", page)
	}
	cursor, _ := ParseCursor(page.NextCursor)
	if cursor.ID != 8 {
		t.Fatalf("expected cursor at 8, got %d", cursor.ID)
	}

	last := Build([]int64{1}, 2, idOf)
	if last.NextCursor != "" || len(last.Items) != 1 {
		t.Fatalf("expected final page, got %+v", last)
	}
	if empty := Build[int64](nil, 2, idOf); empty.Items == nil {
		t.Fatal("expected non-nil items slice")
	}
}
