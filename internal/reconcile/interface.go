package reconcile

import "context"

// Store is the card database a Reconciler writes to.
//
// Implementations own card identity. The reconciler reads every card once
// through ListRecords, then issues ApplyUpdate/ApplyInsert calls in plan
// order, then calls Commit once. Nothing is called after a failed mutation.
type Store interface {
	// ListRecords returns every card currently in the store.
	// Order is store-defined and carries no meaning.
	ListRecords(ctx context.Context) ([]StoreRecord, error)

	// ApplyUpdate replaces the back text and tags of the card identified by id.
	// Any other per-card state (scheduling, review history) must be preserved.
	ApplyUpdate(ctx context.Context, id Handle, newBack string, mergedTags Tags) error

	// ApplyInsert creates a new card.
	ApplyInsert(ctx context.Context, front, back string, tags Tags) error

	// Commit finalizes the mutations applied since the previous Commit.
	Commit(ctx context.Context) error
}
