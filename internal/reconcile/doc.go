// Package reconcile diffs a source-of-truth card table against a card store
// and applies the minimal set of mutations that brings the store in line.
//
// Overview
//
// Cards are matched on their front text (the natural key). Every store card
// whose front appears in the source is either left alone (same back text) or
// updated (new back text, tags merged). Source cards with no match in the store
// are inserted. Store cards with no match in the source are never touched.
//
//	source.Load(tsv)          store.ListRecords()
//	      │                          │
//	      └──────────► Plan ◄────────┘
//	                    │
//	         Insert / Update / Skip
//	                    │
//	      dry run? ── yes ──► audit trace only
//	                    │
//	                    no
//	                    ▼
//	     ApplyUpdate / ApplyInsert ... Commit
//
// Usage
//
//	records, err := source.Load("cards.tsv", source.Options{})
//	if err != nil {
//	    return err
//	}
//
//	st, err := store.Open(store.PathFor("./data"), nil)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	r := reconcile.New(st, reconcile.Config{Out: os.Stdout})
//	result, err := r.Run(ctx, records, dryRun)
//
// Failure model
//
// A run is fail-fast. The first mutation the store rejects aborts the run with
// an *ApplyError; mutations applied before it stay applied and Commit is not
// called. Stores that need atomicity must provide it themselves.
package reconcile
