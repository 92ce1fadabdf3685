// Package services holds the domain stores of the console: cached,
// paginated mirrors of the students and staff collections, and the
// dashboard summary. A store never edits its cache speculatively; every
// patch is applied from the server's answer after a successful call.
package services

import (
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

// Busy flags one pending mutation per kind of action.
type Busy struct {
	Create      bool
	Update      bool
	Delete      bool
	Photo       bool
	Permissions bool
	Status      bool
}

// cache is the list, selection and pagination shared by the stores.
type cache[T any] struct {
	items      []T
	selected   *T
	pagination models.Pagination
	id         func(*T) string
}

func newCache[T any](id func(*T) string) cache[T] {
	return cache[T]{pagination: models.DefaultPagination(), id: id}
}

func (c *cache[T]) index(id string) int {
	for i := range c.items {
		if c.id(&c.items[i]) == id {
			return i
		}
	}
	return -1
}

func (c *cache[T]) prepend(v T) {
	c.items = append([]T{v}, c.items...)
	c.pagination.Total++
}

// replace swaps the cached copy of v in the list and the selection.
func (c *cache[T]) replace(v T) {
	id := c.id(&v)
	if i := c.index(id); i >= 0 {
		c.items[i] = v
	}
	if c.selected != nil && c.id(c.selected) == id {
		sel := v
		c.selected = &sel
	}
}

// patch applies fn to the cached copies of id.
func (c *cache[T]) patch(id string, fn func(*T)) {
	if i := c.index(id); i >= 0 {
		fn(&c.items[i])
	}
	if c.selected != nil && c.id(c.selected) == id {
		fn(c.selected)
	}
}

func (c *cache[T]) remove(id string) {
	if i := c.index(id); i >= 0 {
		c.items = append(c.items[:i:i], c.items[i+1:]...)
		if c.pagination.Total > 0 {
			c.pagination.Total--
		}
	}
	if c.selected != nil && c.id(c.selected) == id {
		c.selected = nil
	}
}

func (c *cache[T]) setPage(items []T, p models.Pagination) {
	c.items = items
	c.pagination = p
}

func (c *cache[T]) reset() {
	c.items = nil
	c.selected = nil
	c.pagination = models.DefaultPagination()
}

func (c *cache[T]) snapshotItems() []T {
	return append([]T(nil), c.items...)
}

func (c *cache[T]) snapshotSelected() *T {
	if c.selected == nil {
		return nil
	}
	v := *c.selected
	return &v
}
