package migrate

import (
	"context"
	"fmt"

	"github.com/hazyhaar/folio/pkg/store"
)

// CollectionStatus counts the documents of one collection by state.
// Unmigrated documents still hold at least one planned field as a plain
// string; localized ones hold at least one as an {en, fr} object. A
// partially migrated document counts in both.
type CollectionStatus struct {
	Collection string `json:"collection"`
	Total      int    `json:"total"`
	Unmigrated int    `json:"unmigrated"`
	Localized  int    `json:"localized"`
	Error      string `json:"error,omitempty"`
}

// StatusReport answers how much data is still waiting for migration.
type StatusReport struct {
	Collections []CollectionStatus `json:"collections"`
	Pending     int                `json:"pending"`
}

// Status counts documents per collection using the same selection a
// migration run would use. Per-collection errors are reported inline.
func (e *Engine) Status(ctx context.Context) (*StatusReport, error) {
	if err := e.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store unreachable: %w", err)
	}

	rep := &StatusReport{Collections: make([]CollectionStatus, 0, len(e.plan.Collections))}
	for _, c := range e.plan.Collections {
		st := CollectionStatus{Collection: c.Name}
		err := func() error {
			var err error
			if st.Total, err = e.store.Count(ctx, c.Name, store.Filter{}); err != nil {
				return err
			}
			if st.Unmigrated, err = e.store.Count(ctx, c.Name, selection(c, Forward)); err != nil {
				return err
			}
			st.Localized, err = e.store.Count(ctx, c.Name, selection(c, Backward))
			return err
		}()
		if err != nil {
			st.Error = fmt.Sprintf("%s status failed: %v", c.Title(), err)
			e.logger.Error("status failed", "collection", c.Name, "error", err)
		}
		rep.Pending += st.Unmigrated
		rep.Collections = append(rep.Collections, st)
	}
	return rep, nil
}
