// Package pzdb implements the session's per-session view over the shared
// target catalog (spec.md §4.D): each SessionDatabase wraps a shared
// TargetDef and an overridable settings array, with changes invalidating
// cached clients on next search.
package pzdb

import (
	"strings"
	"sync"

	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/unitext"
)

// TargetDef is the shared, catalog-wide definition of one bibliographic
// target, looked up by identity across all sessions. Config loading that
// populates a catalog of these is out of scope (spec.md §1); callers just
// construct TargetDefs directly.
type TargetDef struct {
	ID       string
	Defaults map[string]string
}

// settingOverride is one prepended link in a per-key override chain, per
// spec.md §4.D's apply_setting ("prepends to the override chain for that
// key").
type settingOverride struct {
	value string
	next  *settingOverride
}

// SessionDatabase is a session's view of one TargetDef, per spec.md §4.D.
type SessionDatabase struct {
	mu sync.RWMutex

	Target *TargetDef
	Allowed bool // PZ_ALLOW override gate, supplementing spec.md per SPEC_FULL.md §6.D

	overrides       map[string]*settingOverride
	settingsModified bool
}

// NewSessionDatabase wraps target for one session, defaulting Allowed=true.
func NewSessionDatabase(target *TargetDef) *SessionDatabase {
	return &SessionDatabase{Target: target, Allowed: true, overrides: make(map[string]*settingOverride)}
}

// Setting resolves key: the head of this session's override chain if one
// exists, else the shared TargetDef's default, else "".
func (db *SessionDatabase) Setting(key string) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if chain, ok := db.overrides[key]; ok {
		return chain.value
	}
	return db.Target.Defaults[key]
}

// ApplySetting prepends value onto key's override chain and marks the
// database modified, per spec.md §4.D. PZ_ALLOW is handled specially: it
// gates Allowed directly rather than only being readable via Setting.
func (db *SessionDatabase) ApplySetting(key, value string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.overrides[key] = &settingOverride{value: value, next: db.overrides[key]}
	db.settingsModified = true
	if key == pzcfg.PZAllow {
		db.Allowed = value != "0" && !strings.EqualFold(value, "false")
	}
}

// SettingsModified reports whether ApplySetting has been called since the
// last search, the condition that invalidates cached clients, per spec.md
// §4.D/§4.F.
func (db *SessionDatabase) SettingsModified() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.settingsModified
}

// ClearModified resets the modified flag once the invalidation it triggers
// has been handled (session_search does this after dropping cached
// clients).
func (db *SessionDatabase) ClearModified() {
	db.mu.Lock()
	db.settingsModified = false
	db.mu.Unlock()
}

// Name resolves PZ_NAME, falling back to the wrapped target's id when
// unset, per SPEC_FULL.md §6.D.
func (db *SessionDatabase) Name() string {
	if n := db.Setting(pzcfg.PZName); n != "" {
		return n
	}
	return db.Target.ID
}

// PrepareMap resolves the XSLT stylesheet reference for this database, per
// spec.md §4.D: a literal "auto" setting derives the filename from
// PZ_REQUESTSYNTAX by lowercasing its ASCII portion and appending ".xsl".
func (db *SessionDatabase) PrepareMap() string {
	xslt := db.Setting(pzcfg.PZXSLT)
	if xslt != "auto" {
		return xslt
	}
	syntax := db.Setting(pzcfg.PZRequestSyntax)
	return unitext.LowerASCIIPortion(syntax) + ".xsl"
}

// SettingsSnapshot returns the effective value of every setting this
// database currently carries - the override chains' heads plus any
// TargetDef default not shadowed by one - for the xtargets settings dump
// perform_termlist emits (spec.md §4.G).
func (db *SessionDatabase) SettingsSnapshot() map[string]string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]string, len(db.Target.Defaults)+len(db.overrides))
	for k, v := range db.Target.Defaults {
		out[k] = v
	}
	for k, chain := range db.overrides {
		out[k] = chain.value
	}
	return out
}

// XSLTArgs builds the single-quoted-literal argument list ingestion's
// transform step passes to the XSLT map, one per metadata field whose
// SettingKind is Parameter, capped at MAX_XSLT_ARGS, per spec.md §4.E step
// 2. Args are returned as (name, quotedValue) pairs in field-definition
// order; the caller decides how to hand them to its XSLT engine.
const MaxXSLTArgs = 16

type XSLTArg struct {
	Name  string
	Value string
}

func (db *SessionDatabase) XSLTArgs(fields []pzcfg.MetadataField) []XSLTArg {
	var args []XSLTArg
	for _, f := range fields {
		if f.SettingKind != pzcfg.SettingParameter {
			continue
		}
		if len(args) >= MaxXSLTArgs {
			break
		}
		v := db.Setting("pz:" + f.Name)
		args = append(args, XSLTArg{Name: f.Name, Value: "'" + v + "'"})
	}
	return args
}
