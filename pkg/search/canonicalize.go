package search

import (
	"context"
	"fmt"

	"github.com/sanonone/wikihop/pkg/table"
)

// Canonicalize returns title as it is stored: the exact title when present,
// otherwise its normalized form when that is present. Redirects are not
// followed; a redirect title is a valid start or goal.
func Canonicalize(ctx context.Context, store table.Store, normalize Normalizer, title string) (string, error) {
	if title == "" {
		return "", ErrEmptyTitle
	}
	_, found, err := store.Lookup(ctx, title)
	if err != nil {
		return "", &StoreError{Title: title, Err: err}
	}
	if found {
		return title, nil
	}

	if normalize != nil {
		if alt := normalize(title); alt != title {
			_, found, err = store.Lookup(ctx, alt)
			if err != nil {
				return "", &StoreError{Title: alt, Err: err}
			}
			if found {
				return alt, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrTitleNotFound, title)
}
