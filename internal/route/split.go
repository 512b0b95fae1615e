// Package route turns one normalized record into coordinated writes
// against the relational and document backends, according to the
// PlacementDecisions package classify produced. It splits each record
// into a relational payload and a document payload, ensures both target
// schemas exist, then upserts into whichever backends the decisions say
// the record belongs in.
package route

import (
	"strings"

	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

// Split partitions one canonical record into a relational payload
// (column name -> scalar value) and a document payload (original nested
// shape), per spec section 4.5's split rules. Only the outer keys of the
// record are traversed; nested structure inside a DOC-bound field is
// carried through untouched in the document payload.
func Split(record valuetype.Record, decisions map[string]*classify.PlacementDecision) (sqlPayload map[string]any, docPayload map[string]any) {
	sqlPayload = make(map[string]any)
	docPayload = make(map[string]any)

	for key, value := range record {
		if strings.HasPrefix(key, "_") {
			continue
		}
		d, known := decisions[key]
		if !known {
			// Unknown path (not yet classified): safe default is the
			// document store.
			docPayload[key] = value.ToPlainValue()
			continue
		}

		switch d.Backend {
		case classify.BackendSQL:
			sqlPayload[d.RelationalColumn] = value.ToPlainValue()
			if classify.IsLinkingField(key) {
				docPayload[key] = value.ToPlainValue()
			}
		case classify.BackendDOC:
			docPayload[key] = value.ToPlainValue()
		case classify.BackendBOTH:
			sqlPayload[d.RelationalColumn] = value.ToPlainValue()
			docPayload[key] = value.ToPlainValue()
		default:
			docPayload[key] = value.ToPlainValue()
		}
	}

	// Post-condition: a record that produced a relational payload but no
	// document payload still needs its linking fields copied into the
	// document payload, so cross-store joins remain possible.
	if len(sqlPayload) > 0 && len(docPayload) == 0 {
		for key := range classify.LinkingFields {
			if value, ok := record[key]; ok {
				docPayload[key] = value.ToPlainValue()
			}
		}
	}

	return sqlPayload, docPayload
}
