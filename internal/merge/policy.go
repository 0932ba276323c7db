// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge collapses matched record pairs into canonical records
// under a declarative per-field precedence policy, and validates the
// resulting population. Merging fills fields, never deletes them.
package merge

import (
	"reflect"
	"strings"

	"github.com/meshintel/citegraph/pkg/types"
)

// Policy names one per-field merge rule.
type Policy string

const (
	// PreferExisting keeps the existing (authoritative) side when it has
	// a value, adopting the new side only to fill a gap. Boolean fields
	// always keep the existing side of a matched pair, since false is a
	// value, not a gap.
	PreferExisting Policy = "prefer-existing"

	// PreferNew adopts the new side when it has a value.
	PreferNew Policy = "prefer-new"

	// TakeMax keeps the larger numeric value. Counts reported by
	// different sources at different times are lower bounds, so max is
	// the least-wrong estimate.
	TakeMax Policy = "max"

	// ConcatProvenance concatenates provenance tags (new first) when
	// both sides contributed, so provenance is never silently lost.
	ConcatProvenance Policy = "concat-source"
)

// articlePolicy assigns a policy to every article field by its column
// name. Fields not listed default to PreferExisting.
var articlePolicy = map[string]Policy{
	"uid":               PreferExisting,
	"title":             PreferExisting,
	"source":            ConcatProvenance,
	"citations":         TakeMax,
	"google_scholar_id": PreferNew,
}

// authorPolicy assigns a policy to every author field by its column name.
// The new side of an author match is typically a scholar-API record, so
// its google_scholar_id wins; identity fields stay with the existing side.
var authorPolicy = map[string]Policy{
	"uid":               PreferExisting,
	"orcid_id":          PreferExisting,
	"google_scholar_id": PreferNew,
	"name":              PreferExisting,
}

// fieldName returns the column name for a struct field, from its yaml tag.
func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	return strings.Split(tag, ",")[0]
}

// applyPolicies merges existing and new into one record, field by field,
// driven by the policy table. This is the single generic merge function;
// the tables above are the whole per-entity contract.
func applyPolicies[T any](existing, niu T, policies map[string]Policy) T {
	ev := reflect.ValueOf(existing)
	nv := reflect.ValueOf(niu)
	out := reflect.New(ev.Type()).Elem()

	for i := 0; i < ev.NumField(); i++ {
		e, n := ev.Field(i), nv.Field(i)
		var val reflect.Value

		switch policies[fieldName(ev.Type().Field(i))] {
		case PreferNew:
			if !n.IsZero() {
				val = n
			} else {
				val = e
			}
		case TakeMax:
			if e.Int() >= n.Int() {
				val = e
			} else {
				val = n
			}
		case ConcatProvenance:
			val = reflect.ValueOf(types.CombineSources(n.String(), e.String()))
		default: // PreferExisting
			if e.Kind() == reflect.Bool || !e.IsZero() {
				val = e
			} else {
				val = n
			}
		}
		out.Field(i).Set(val)
	}
	return out.Interface().(T)
}
