package ingest

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/indexwerk/mergesearch/pzcfg"
)

// buildRecordMetadata runs ingestion pass 1 (spec.md §4.E.2): every
// <metadata type=T>V</metadata> child becomes a pzcfg.MetaValue appended to
// the field's chain, in document order, with attributes preserved. Unknown
// types and unknown elements are each warned once per pipeline (session).
func (p *Pipeline) buildRecordMetadata(root *etree.Element) [][]pzcfg.MetaValue {
	meta := make([][]pzcfg.MetaValue, len(p.svc.MetadataFields))
	for _, el := range root.ChildElements() {
		if el.Tag != "metadata" {
			p.warnUnknownElement(el.Tag)
			continue
		}
		typ := el.SelectAttrValue("type", "")
		f := p.svc.FieldByName(typ)
		if f == nil {
			p.warnUnknownType(typ)
			continue
		}
		v, ok := buildMetaValue(f, el, true)
		if !ok {
			continue
		}
		meta[f.Index] = append(meta[f.Index], v)
	}
	return meta
}

// buildMetaValue builds one pzcfg.MetaValue from a <metadata> element per
// its field's Kind, per spec.md §4.E.2's pass-1/pass-2 value rules.
// withAttrs controls whether non-"type" XML attributes are preserved (pass 1
// only).
func buildMetaValue(f *pzcfg.MetadataField, el *etree.Element, withAttrs bool) (pzcfg.MetaValue, bool) {
	text := el.Text()
	rank := f.DefaultRank
	if r := el.SelectAttrValue("rank", ""); r != "" {
		if n, err := strconv.Atoi(r); err == nil {
			rank = n
		}
	}

	var attrs []pzcfg.Attr
	if withAttrs {
		for _, a := range el.Attr {
			if a.Key == "type" {
				continue
			}
			attrs = append(attrs, pzcfg.Attr{Name: a.Key, Value: a.Value})
		}
	}

	switch f.Kind {
	case pzcfg.MetaGeneric:
		return pzcfg.Text(normalizeGeneric(text), rank, attrs), true
	case pzcfg.MetaYear, pzcfg.MetaDate:
		min, max, ok := extractDateRange(text, f.Kind == pzcfg.MetaDate)
		if !ok {
			return pzcfg.MetaValue{}, false
		}
		return pzcfg.Range(f.Kind, min, max, rank, attrs), true
	default:
		return pzcfg.MetaValue{}, false
	}
}
