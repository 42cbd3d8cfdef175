package reconcile

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
)

// Config holds the output sinks of a Reconciler.
type Config struct {
	// Out receives the audit trace: one line per insert or update.
	// Defaults to os.Stdout.
	Out io.Writer

	// Logger receives diagnostic messages.
	// Defaults to a stderr logger with a "[sync] " prefix.
	Logger *log.Logger

	// Observer, when set, is told about every planned mutation and the
	// finished run.
	Observer Observer
}

// Observer receives reconciliation events. The dashboard implements it.
type Observer interface {
	// OnMutation is called once per insert or update, after the audit line is
	// written and, outside dry runs, after the store accepted it.
	OnMutation(m Mutation, dryRun bool)

	// OnComplete is called after a run finishes without error.
	OnComplete(result *Result)
}

// Result summarizes one reconciliation run.
type Result struct {
	// Plan holds every planned entry, skips included, in plan order.
	Plan []Mutation
	// DryRun reports whether the store was left untouched.
	DryRun bool
}

// Inserted counts the insert entries of the plan.
func (r *Result) Inserted() int {
	return r.count(KindInsert)
}

// Updated counts the update entries of the plan.
func (r *Result) Updated() int {
	return r.count(KindUpdate)
}

// Unchanged counts the matched cards that needed no mutation.
func (r *Result) Unchanged() int {
	return r.count(KindSkip)
}

// Changes returns the insert and update entries in plan order.
func (r *Result) Changes() []Mutation {
	changes := make([]Mutation, 0, len(r.Plan))
	for _, m := range r.Plan {
		if m.Kind != KindSkip {
			changes = append(changes, m)
		}
	}
	return changes
}

func (r *Result) count(kind Kind) int {
	n := 0
	for _, m := range r.Plan {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// Reconciler applies source records to a Store.
type Reconciler struct {
	store    Store
	out      io.Writer
	logger   *log.Logger
	observer Observer
}

// New creates a Reconciler for store.
//
// Example:
//
//	r := reconcile.New(st, reconcile.Config{Out: os.Stdout})
//	result, err := r.Run(ctx, records, true)
func New(store Store, cfg Config) *Reconciler {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Reconciler{
		store:    store,
		out:      cfg.Out,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
}

// Preview reads the store and returns the plan without printing or applying it.
func (r *Reconciler) Preview(ctx context.Context, records []SourceRecord) ([]Mutation, error) {
	cards, err := r.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	return Plan(records, cards), nil
}

// Run reconciles records against the store.
//
// Every insert and update is written to the audit trace whether or not dryRun
// is set. With dryRun the store is only read. Otherwise mutations are applied
// in plan order and Commit is called once at the end; the first failure
// returns an *ApplyError and stops the run.
func (r *Reconciler) Run(ctx context.Context, records []SourceRecord, dryRun bool) (*Result, error) {
	cards, err := r.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}

	result := &Result{
		Plan:   Plan(records, cards),
		DryRun: dryRun,
	}
	r.logger.Printf("Planned %d inserts, %d updates, %d unchanged (store=%d, source=%d, dry_run=%t)",
		result.Inserted(), result.Updated(), result.Unchanged(), len(cards), len(records), dryRun)

	applied := 0
	for _, m := range result.Plan {
		if m.Kind == KindSkip {
			continue
		}

		if _, err := fmt.Fprintln(r.out, m.Describe()); err != nil {
			return nil, fmt.Errorf("failed to write audit line: %w", err)
		}

		if !dryRun {
			if err := r.apply(ctx, m); err != nil {
				return nil, &ApplyError{Mutation: m, Applied: applied, Err: err}
			}
			applied++
		}

		if r.observer != nil {
			r.observer.OnMutation(m, dryRun)
		}
	}

	if !dryRun {
		if err := r.store.Commit(ctx); err != nil {
			return nil, &ApplyError{Applied: applied, Err: err}
		}
		r.logger.Printf("Committed %d mutations", applied)
	}

	if r.observer != nil {
		r.observer.OnComplete(result)
	}

	return result, nil
}

func (r *Reconciler) apply(ctx context.Context, m Mutation) error {
	switch m.Kind {
	case KindUpdate:
		return r.store.ApplyUpdate(ctx, m.ID, m.Back, m.Tags)
	case KindInsert:
		return r.store.ApplyInsert(ctx, m.Front, m.Back, m.Tags)
	default:
		return fmt.Errorf("unexpected mutation kind %s", m.Kind)
	}
}
