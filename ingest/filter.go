package ingest

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/pzcfg"
)

// parseFilterGrammar splits a "name", "name=value", or "name~value" string
// per spec.md §6's record-filter grammar.
func parseFilterGrammar(s string) (name, op, value string) {
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		return s[:idx], "=", s[idx+1:]
	}
	if idx := strings.IndexByte(s, '~'); idx >= 0 {
		return s[:idx], "~", s[idx+1:]
	}
	return s, "", ""
}

// checkRecordFilter implements spec.md §4.E step 4: the record is accepted
// iff it has at least one metadata[type=name] whose content matches (or is
// any, when no value is given).
func checkRecordFilter(root *etree.Element, filterSetting string) bool {
	name, op, value := parseFilterGrammar(filterSetting)
	for _, el := range root.ChildElements() {
		if el.Tag != "metadata" || el.SelectAttrValue("type", "") != name {
			continue
		}
		text := strings.TrimSpace(el.Text())
		switch op {
		case "":
			return true
		case "=":
			if text == value {
				return true
			}
		case "~":
			if strings.Contains(text, value) {
				return true
			}
		}
	}
	return false
}

// checkLimitLocal implements spec.md §4.E.2's local-limit check: for every
// client-provided facet limit (name, values), the record passes only if at
// least one configured metadata field matches one value, with name="*"
// meaning any field.
func checkLimitLocal(meta [][]pzcfg.MetaValue, fields []pzcfg.MetadataField, origin client.Client) bool {
	for _, name := range origin.FacetLimitNames() {
		values, ok := origin.FacetLimitLocal(name)
		if !ok || len(values) == 0 {
			continue
		}
		if !limitMatchesAny(meta, fields, name, values) {
			return false
		}
	}
	return true
}

func limitMatchesAny(meta [][]pzcfg.MetaValue, fields []pzcfg.MetadataField, name string, values []string) bool {
	for i := range fields {
		f := &fields[i]
		if name != "*" && f.Name != name {
			continue
		}
		if f.Index >= len(meta) {
			continue
		}
		for _, mv := range meta[f.Index] {
			for _, want := range values {
				if fieldMatchesLimit(f, mv, want) {
					return true
				}
			}
		}
	}
	return false
}

// fieldMatchesLimit reports whether mv satisfies limit value want: year/date
// fields match when want parses as an integer inside [min,max]; other
// fields use display-text equality, per spec.md §4.E.2.
func fieldMatchesLimit(f *pzcfg.MetadataField, mv pzcfg.MetaValue, want string) bool {
	if f.Kind == pzcfg.MetaYear || f.Kind == pzcfg.MetaDate {
		n, err := strconv.Atoi(want)
		if err != nil {
			return false
		}
		return n >= mv.Min && n <= mv.Max
	}
	return mv.Disp == want
}
