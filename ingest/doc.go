// Package ingest implements the per-record ingestion pipeline (spec.md
// §4.E): parse, transform, postproc-inject, filter, derive a merge key, and
// fold the result into a session's record list, updating sort keys,
// relevance, and facet counts along the way.
package ingest

import (
	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzdb"
)

// parseXML parses one target record into a mutable DOM, per spec.md §4.E
// step 1.
func parseXML(text string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, errors.Wrap(err, "ingest: parse record")
	}
	if doc.Root() == nil {
		return nil, errors.New("ingest: record has no root element")
	}
	return doc, nil
}

// injectPostproc appends a <metadata type="name">value</metadata> child for
// every field whose setting kind is postproc and whose session-database
// setting is non-empty, per spec.md §4.E step 3.
func injectPostproc(root *etree.Element, fields []pzcfg.MetadataField, db *pzdb.SessionDatabase) {
	for i := range fields {
		f := &fields[i]
		if f.SettingKind != pzcfg.SettingPostproc {
			continue
		}
		v := db.Setting("pz:" + f.Name)
		if v == "" {
			continue
		}
		el := root.CreateElement("metadata")
		el.CreateAttr("type", f.Name)
		el.SetText(v)
	}
}
