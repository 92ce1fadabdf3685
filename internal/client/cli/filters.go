package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

// parseFilters reads key=value list arguments, e.g. "page=2 search=ann".
// Keys not in allowed are rejected.
func parseFilters(args []string, allowed ...string) (models.ListParams, error) {
	var p models.ListParams
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}

	for _, arg := range args {
		key, val, found := strings.Cut(arg, "=")
		if !found || val == "" {
			return p, fmt.Errorf("expected key=value, got %q", arg)
		}
		if !ok[key] {
			return p, fmt.Errorf("unknown filter %q", key)
		}

		switch key {
		case "page", "limit":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return p, fmt.Errorf("%s must be a positive number", key)
			}
			if key == "page" {
				p.Page = n
			} else {
				p.Limit = n
			}
		case "search":
			p.Search = val
		case "standard":
			p.Standard = val
		case "section":
			p.Section = val
		case "department":
			p.Department = val
		case "active":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return p, fmt.Errorf("active must be true or false")
			}
			p.IsActive = &b
		}
	}

	// A new filter starts from the first page unless one is given.
	if p.Page == 0 && (p.Search != "" || p.Standard != "" || p.Section != "" || p.Department != "" || p.IsActive != nil) {
		p.Page = 1
	}
	return p, nil
}

func pageFooter(pg models.Pagination, noun string) string {
	return fmt.Sprintf("Page %d of %d (%d %s)", pg.CurrentPage, pg.TotalPages, pg.Total, noun)
}
