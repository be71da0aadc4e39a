package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name          string
		page, perPage int
		total         int
		want          Pagination
	}{
		{"exact fit", 1, 10, 30, Pagination{Page: 1, PerPage: 10, Total: 30, TotalPages: 3}},
		{"partial last page", 2, 10, 31, Pagination{Page: 2, PerPage: 10, Total: 31, TotalPages: 4}},
		{"empty result", 1, 10, 0, Pagination{Page: 1, PerPage: 10, Total: 0, TotalPages: 0}},
		{"defaults applied", 0, 0, 5, Pagination{Page: 1, PerPage: 20, Total: 5, TotalPages: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewPagination(tc.page, tc.perPage, tc.total))
		})
	}
}
