package transform

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"compat-merger/core/job"
	"compat-merger/core/luascript"
	"compat-merger/core/resources"
	"compat-merger/core/xdb"
	"compat-merger/feature/records"

	"go.uber.org/zap"
)

// Sink receives the serialized patch entries.
type Sink interface {
	WriteEntry(name string, data []byte) error
}

// Report summarizes one run.
type Report struct {
	MapsWritten     int `json:"maps_written"`
	MapsSkipped     int `json:"maps_skipped"`
	MapsShared      int `json:"maps_shared"`
	MapScripts      int `json:"map_scripts"`
	HeroesWritten   int `json:"heroes_written"`
	HeroesUnchanged int `json:"heroes_unchanged"`
	HeroScripts     int `json:"hero_scripts"`
	Creatures       int `json:"creatures"`
}

// Pipeline rewrites preloaded records into patch entries.
type Pipeline struct {
	store  *records.Store
	bundle *resources.Bundle
	logger *zap.Logger
}

// New returns a pipeline over store using the bundled templates.
func New(store *records.Store, bundle *resources.Bundle, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, bundle: bundle, logger: logger}
}

type run struct {
	*Pipeline
	ctx     context.Context
	tracker *job.Tracker
	sel     Selection
	sink    Sink
	report  *Report
	scripts map[string]struct{}
}

// Run applies sel and writes every resulting entry to sink: maps first, then
// heroes when the racial boost covers them, then the creature tables. It
// stops with job.ErrCancelled between records once cancellation is requested.
// The records in the store are not modified.
func (p *Pipeline) Run(ctx context.Context, tracker *job.Tracker, sel Selection, sink Sink) (*Report, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	sel = sel.Effective()
	tracker.SetTotal(sel.Total(p.store))

	r := &run{
		Pipeline: p,
		ctx:      ctx,
		tracker:  tracker,
		sel:      sel,
		sink:     sink,
		report:   &Report{},
		scripts:  make(map[string]struct{}),
	}

	if err := r.maps(); err != nil {
		return r.report, err
	}
	if sel.HeroStage() {
		if err := r.heroes(); err != nil {
			return r.report, err
		}
	}
	if err := r.creatures(); err != nil {
		return r.report, err
	}
	return r.report, nil
}

// mapKit holds the templates the map rules need. A template that failed to
// load disables only the rule using it. Missing spell or artifact lists only
// stop the additive union; emptying lists needs neither.
type mapKit struct {
	spells    []string
	artifacts []string
	towns     []resources.Fragment
	artificer []resources.Fragment
	script    *resources.MapScript
}

func (r *run) loadMapKit() mapKit {
	var kit mapKit
	var spellsArtifacts, racial bool
	for _, o := range r.sel.Maps {
		spellsArtifacts = spellsArtifacts || o.AllSpellsArtifacts
		racial = racial || o.RacialBoost
	}

	if spellsArtifacts {
		var err error
		if kit.spells, err = r.bundle.AllSpells(); !r.usable("all spells", err) {
			kit.spells = nil
		}
		if kit.artifacts, err = r.bundle.AllArtifacts(); !r.usable("all artifacts", err) {
			kit.artifacts = nil
		}
	}
	if racial {
		var err error
		if kit.towns, err = r.bundle.Towns(); !r.usable("starter towns", err) {
			kit.towns = nil
		}
		if kit.artificer, err = r.bundle.Artificer(); !r.usable("artificer artifacts", err) {
			kit.artificer = nil
		}
		if s, err := r.bundle.MapScript(); r.usable("map script", err) {
			kit.script = &s
		}
	}
	return kit
}

func (r *run) usable(rule string, err error) bool {
	if err == nil {
		return true
	}
	r.logger.Warn("Rule disabled, bundled template unavailable", zap.String("rule", rule), zap.Error(err))
	return false
}

func (r *run) maps() error {
	start := time.Now()
	kit := r.loadMapKit()
	owners := r.mapOwners()

	for _, cat := range r.sel.Categories() {
		opts := r.sel.Maps[cat]
		for _, rec := range r.store.Maps(cat) {
			r.tracker.SetStage(fmt.Sprintf("Patching map %s", rec.Path))
			if owners[strings.ToLower(rec.Path)] != rec {
				r.report.MapsShared++
				r.logger.Debug("Map left to a later category",
					zap.String("category", string(cat)),
					zap.String("map", rec.Path))
			} else if err := r.patchMap(rec, cat, opts, kit); err != nil {
				return err
			}
			r.tracker.Advance(1)
			if err := r.tracker.Checkpoint(r.ctx); err != nil {
				return err
			}
		}
	}

	r.logger.Info("Maps patched",
		zap.Int("written", r.report.MapsWritten),
		zap.Int("skipped", r.report.MapsSkipped),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// mapOwners picks the record that writes each map path. A map data file listed
// under several categories is patched once, with the options of the last
// selected category in Categories order.
func (r *run) mapOwners() map[string]*records.MapRecord {
	owners := make(map[string]*records.MapRecord)
	for _, cat := range r.sel.Categories() {
		for _, rec := range r.store.Maps(cat) {
			owners[strings.ToLower(rec.Path)] = rec
		}
	}
	return owners
}

func (r *run) patchMap(rec *records.MapRecord, cat records.Category, opts Options, kit mapKit) error {
	doc, err := rec.Tree()
	if err != nil {
		r.logger.Warn("Skipping unreadable map",
			zap.String("map", rec.Path),
			zap.String("archive", rec.Archive),
			zap.Error(err))
		r.report.MapsSkipped++
		return nil
	}
	doc = doc.Copy()
	m := doc.Root()

	if opts.AllHeroes {
		EnableAllHeroes(m, cat)
	}
	if opts.AllSpellsArtifacts {
		EnableAllSpellsArtifacts(m, cat, kit.spells, kit.artifacts)
	}
	if opts.RacialBoost {
		AddMissingTowns(m, kit.towns)
		AddMissingArtificer(m, kit.artificer)
		if kit.script != nil && HookMapScript(m) {
			if err := r.writeMapScript(rec.Dir(), *kit.script); err != nil {
				return err
			}
		}
	}

	data, err := xdb.Serialize(doc)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", rec.Path, err)
	}
	if err := r.sink.WriteEntry(rec.Path, data); err != nil {
		return err
	}
	r.report.MapsWritten++
	r.logger.Debug("Map patched", zap.String("category", string(cat)), zap.String("map", rec.Path))
	return nil
}

func (r *run) writeMapScript(dir string, s resources.MapScript) error {
	if _, done := r.scripts[dir]; done {
		return nil
	}
	r.scripts[dir] = struct{}{}
	if err := r.sink.WriteEntry(path.Join(dir, resources.MapScriptXDB), s.XDB); err != nil {
		return err
	}
	if err := r.sink.WriteEntry(path.Join(dir, resources.MapScriptLua), s.Lua); err != nil {
		return err
	}
	r.report.MapScripts++
	return nil
}

func (r *run) heroes() error {
	start := time.Now()
	r.tracker.SetStage("Patching heroes")

	perks, err := r.bundle.PerkSwaps()
	if !r.usable("perk swaps", err) {
		perks = nil
	}
	specs, err := r.bundle.SpecializationSwaps()
	if !r.usable("specialization swaps", err) {
		specs = nil
	}

	listed := make(map[string][]string)
	for _, s := range SpecializationScripts() {
		listed[s.Specialization] = nil
	}

	for _, h := range r.store.Heroes() {
		doc := h.Doc.Copy()
		root := doc.Root()
		name := xdb.Text(root, "InternalName")
		spec := xdb.Text(root, "Specialization")

		changes := 0
		class := xdb.Text(root, "Class")
		spells, err := r.bundle.ClassSpells(class)
		if r.usable("class spells", err) {
			changes += UnionClassSpells(root, spells)
		}
		changes += SwapPerks(root, perks)
		if SwapSpecialization(root, specs) {
			changes++
		}

		if names, ok := listed[spec]; ok {
			listed[spec] = append(names, name)
		}

		if changes > 0 {
			data, err := xdb.Serialize(doc)
			if err != nil {
				return fmt.Errorf("serialize %s: %w", h.Path, err)
			}
			if err := r.sink.WriteEntry(h.Path, data); err != nil {
				return err
			}
			r.report.HeroesWritten++
			r.logger.Debug("Hero patched", zap.String("hero", h.Path), zap.Int("changes", changes))
		} else {
			r.report.HeroesUnchanged++
		}

		r.tracker.Advance(1)
		if err := r.tracker.Checkpoint(r.ctx); err != nil {
			return err
		}
	}

	r.tracker.SetStage("Writing specialization scripts")
	for _, s := range SpecializationScripts() {
		names := listed[s.Specialization]
		if len(names) == 0 {
			continue
		}
		if err := r.writeLua(s.Path, SpecializationLua(s.Variable, names)); err != nil {
			return err
		}
		r.report.HeroScripts++
		if err := r.tracker.Checkpoint(r.ctx); err != nil {
			return err
		}
	}

	r.logger.Info("Heroes patched",
		zap.Int("written", r.report.HeroesWritten),
		zap.Int("unchanged", r.report.HeroesUnchanged),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *run) creatures() error {
	r.tracker.SetStage("Writing creature tables")
	c := r.store.Catalog()
	if err := r.writeLua(CreatureInfoScript, CreatureScript(c)); err != nil {
		return err
	}
	r.report.Creatures = c.Len()
	r.tracker.Advance(1)
	r.logger.Info("Creature tables written", zap.Int("creatures", c.Len()))
	return nil
}

func (r *run) writeLua(name, src string) error {
	if err := luascript.Validate(name, []byte(src)); err != nil {
		return err
	}
	return r.sink.WriteEntry(name, []byte(src))
}
