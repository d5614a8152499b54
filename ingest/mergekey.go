package ingest

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/indexwerk/mergesearch/pzcfg"
)

// deriveMergeKey implements spec.md §4.E.1's precedence: a stylesheet-set
// "mergekey" attribute on the root wins; otherwise per-field metadata is
// walked and tokenized; an empty result falls back to a per-record unique
// key. The result is always non-empty and deterministic given the same
// (normalized) document.
func (p *Pipeline) deriveMergeKey(root *etree.Element, clientID string, recordNo int) string {
	mergeChain := p.svc.Chain("mergekey")

	if attr := root.SelectAttrValue("mergekey", ""); attr != "" {
		if toks := tokenize(mergeChain, attr); len(toks) > 0 {
			return "content: " + strings.Join(toks, " ")
		}
	}

	var parts []string
	for i := range p.svc.MetadataFields {
		f := &p.svc.MetadataFields[i]
		if f.MergeKey == pzcfg.MergeKeyNo {
			continue
		}

		found := false
		for _, el := range root.ChildElements() {
			if el.Tag != "metadata" || el.SelectAttrValue("type", "") != f.Name {
				continue
			}
			toks := tokenize(mergeChain, el.Text())
			if len(toks) == 0 {
				continue
			}
			found = true
			parts = append(parts, f.Name)
			parts = append(parts, toks...)
		}

		if !found && f.MergeKey == pzcfg.MergeKeyRequired {
			// discard all accumulated key material and fall through to the
			// unique fallback, per spec.md §4.E.1.
			parts = nil
			break
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("position: %s-%d", clientID, recordNo)
	}
	return "content: " + strings.Join(parts, " ")
}
