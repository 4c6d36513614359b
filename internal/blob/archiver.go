package blob

import "context"

// SnapshotArchiver writes raw scraper pages to a Store.
type SnapshotArchiver struct {
	store Store
}

func NewSnapshotArchiver(store Store) *SnapshotArchiver {
	return &SnapshotArchiver{store: store}
}

func (a *SnapshotArchiver) Archive(ctx context.Context, key string, html []byte) error {
	_, err := a.store.PutObject(ctx, key, html, "text/html; charset=utf-8")
	return err
}
