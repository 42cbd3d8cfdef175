package reconcile

// Plan computes the mutations that bring store in line with source.
//
// Source fronts are matched against store fronts. When a front occurs more
// than once in source, the last occurrence wins. Matched cards produce an
// Update when the back text differs and a Skip otherwise, in store order.
// Unmatched source cards follow as Inserts, in the order their front first
// appeared in source. Store cards with no source match produce nothing.
//
// Plan does not modify its inputs.
func Plan(source []SourceRecord, store []StoreRecord) []Mutation {
	pending := make(map[string]SourceRecord, len(source))
	order := make([]string, 0, len(source))
	for _, rec := range source {
		if _, ok := pending[rec.Front]; !ok {
			order = append(order, rec.Front)
		}
		pending[rec.Front] = rec
	}

	plan := make([]Mutation, 0, len(pending))

	for _, card := range store {
		rec, ok := pending[card.Front]
		if !ok {
			continue
		}
		// Matched either way; it must not come back as an insert.
		delete(pending, card.Front)

		if rec.Back == card.Back {
			plan = append(plan, Mutation{Kind: KindSkip, ID: card.ID, Front: card.Front})
			continue
		}
		plan = append(plan, Mutation{
			Kind:  KindUpdate,
			ID:    card.ID,
			Front: card.Front,
			Back:  rec.Back,
			Tags:  card.Tags.Union(rec.Tags),
		})
	}

	for _, front := range order {
		rec, ok := pending[front]
		if !ok {
			continue
		}
		plan = append(plan, Mutation{
			Kind:  KindInsert,
			Front: rec.Front,
			Back:  rec.Back,
			Tags:  NewTags(rec.Tags...),
		})
	}

	return plan
}
