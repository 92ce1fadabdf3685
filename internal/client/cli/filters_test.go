package cli

import (
	"testing"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	active := false

	tests := []struct {
		name    string
		args    []string
		want    models.ListParams
		wantErr string
	}{
		{name: "none", args: nil, want: models.ListParams{}},
		{name: "paging", args: []string{"page=3", "limit=25"}, want: models.ListParams{Page: 3, Limit: 25}},
		{
			name: "filter resets page",
			args: []string{"search=ann", "standard=5th", "section=B"},
			want: models.ListParams{Page: 1, Search: "ann", Standard: "5th", Section: "B"},
		},
		{
			name: "explicit page kept",
			args: []string{"department=Arts", "page=2"},
			want: models.ListParams{Page: 2, Department: "Arts"},
		},
		{name: "active", args: []string{"active=false"}, want: models.ListParams{Page: 1, IsActive: &active}},
		{name: "missing value", args: []string{"search="}, wantErr: `expected key=value, got "search="`},
		{name: "bare word", args: []string{"ann"}, wantErr: `expected key=value, got "ann"`},
		{name: "unknown", args: []string{"colour=red"}, wantErr: `unknown filter "colour"`},
		{name: "zero page", args: []string{"page=0"}, wantErr: "page must be a positive number"},
		{name: "bad limit", args: []string{"limit=ten"}, wantErr: "limit must be a positive number"},
		{name: "bad active", args: []string{"active=maybe"}, wantErr: "active must be true or false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.args, "page", "limit", "search", "standard", "section", "department", "active")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilters_RespectsAllowedKeys(t *testing.T) {
	_, err := parseFilters([]string{"department=Arts"}, "page", "search", "standard", "section")
	assert.EqualError(t, err, `unknown filter "department"`)
}

func TestPageFooter(t *testing.T) {
	got := pageFooter(models.Pagination{CurrentPage: 2, TotalPages: 5, Total: 47}, "students")
	assert.Equal(t, "Page 2 of 5 (47 students)", got)
}
