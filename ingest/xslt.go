package ingest

import (
	"github.com/beevik/etree"

	"github.com/indexwerk/mergesearch/pzdb"
)

// StylesheetMap is a compiled transform resolved from a NormalizeCache, per
// spec.md §6's "NormalizeCache: get(service, stylesheet_ref) -> map | null".
// Compiling and executing the transform itself is out of scope (spec.md §1);
// this module only consumes the interface.
type StylesheetMap interface {
	Transform(doc *etree.Document, args []pzdb.XSLTArg) (*etree.Document, error)
}

// NormalizeCache resolves a stylesheet reference to a compiled
// StylesheetMap, per spec.md §6. A nil NormalizeCache (or a miss) means
// ingestion proceeds on the un-transformed tree, matching spec.md §4.D's
// "XSLT map resolution failure marks the session database unusable for this
// search but does not fail the session" at the per-record granularity this
// pipeline operates at.
type NormalizeCache interface {
	Get(stylesheetRef string) (StylesheetMap, bool)
}
