package domain

import "testing"

func TestClampPage(t *testing.T) {
	cases := []struct {
		name       string
		page       int
		totalPages int
		want       int
	}{
		{"below lower bound", 0, 10, 1},
		{"negative", -3, 10, 1},
		{"above upper bound", 999, 10, 10},
		{"in range", 4, 10, 4},
		{"exact upper bound", 10, 10, 10},
		{"unknown total pages", 2, 0, 1},
		{"unknown total pages lower", 0, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampPage(tc.page, tc.totalPages); got != tc.want {
				t.Fatalf("ClampPage(%d, %d) = %d, want %d", tc.page, tc.totalPages, got, tc.want)
			}
		})
	}
}
