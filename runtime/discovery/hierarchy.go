package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/mirror/runtime/decl"
)

func baseKey(d decl.TypeDeclaration) string {
	if d.Type() != nil {
		return d.QualifiedName() + "@" + d.Type().String()
	}
	return d.QualifiedName()
}

// FindSubclassesOf returns every class whose superclass, interfaces or
// mixins refer to base, directly or through its superclass chain.
func (x *Index) FindSubclassesOf(base decl.TypeDeclaration) ([]*decl.ClassDeclaration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if base == nil {
		return nil, x.ready()
	}
	found, _, err := lookup(x, x.subclasses, baseKey(base), func() ([]*decl.ClassDeclaration, bool, error) {
		classes, err := x.registry.AllClasses()
		if err != nil {
			return nil, false, err
		}
		out := []*decl.ClassDeclaration{}
		for _, c := range classes {
			if decl.TypeDeclaration(c) == base {
				continue
			}
			if extends(c, base, classes, map[*decl.ClassDeclaration]bool{}) {
				out = append(out, c)
			}
		}
		return out, true, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(found), nil
}

// extends walks c's superclass chain looking for a direct reference to
// base. visited guards against malformed cyclic chains.
func extends(c *decl.ClassDeclaration, base decl.TypeDeclaration, classes []*decl.ClassDeclaration, visited map[*decl.ClassDeclaration]bool) bool {
	if visited[c] {
		return false
	}
	visited[c] = true
	if refersTo(c, base) {
		return true
	}
	super := c.SuperClass()
	if super == nil {
		return false
	}
	for _, candidate := range classes {
		if super.Matches(candidate) {
			return extends(candidate, base, classes, visited)
		}
	}
	return false
}

func refersTo(d decl.TypeDeclaration, base decl.TypeDeclaration) bool {
	if d.SuperClass().Matches(base) {
		return true
	}
	for _, l := range d.Interfaces() {
		if l.Matches(base) {
			return true
		}
	}
	for _, l := range d.Mixins() {
		if l.Matches(base) {
			return true
		}
	}
	return false
}

// FindImplementersOf returns the classes whose interfaces or mixins refer
// to iface, and the mixins whose interfaces do. Only direct references
// count; compose with FindSubclassesOf for transitive results.
func (x *Index) FindImplementersOf(iface decl.TypeDeclaration) ([]decl.TypeDeclaration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if iface == nil {
		return nil, x.ready()
	}
	found, _, err := lookup(x, x.implementers, baseKey(iface), func() ([]decl.TypeDeclaration, bool, error) {
		classes, err := x.registry.AllClasses()
		if err != nil {
			return nil, false, err
		}
		mixins, err := x.registry.AllMixins()
		if err != nil {
			return nil, false, err
		}
		out := []decl.TypeDeclaration{}
		for _, c := range classes {
			if anyMatches(c.Interfaces(), iface) || anyMatches(c.Mixins(), iface) {
				out = append(out, c)
			}
		}
		for _, m := range mixins {
			if anyMatches(m.Interfaces(), iface) {
				out = append(out, m)
			}
		}
		return out, true, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(found), nil
}

func anyMatches(links []*decl.Link, d decl.TypeDeclaration) bool {
	for _, l := range links {
		if l.Matches(d) {
			return true
		}
	}
	return false
}

// FindGenericInstantiationsOf returns the generic declarations whose simple
// name starts with base's simple name, excluding base itself.
func (x *Index) FindGenericInstantiationsOf(base decl.TypeDeclaration) ([]decl.TypeDeclaration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if base == nil {
		return nil, x.ready()
	}
	found, _, err := lookup(x, x.generics, baseKey(base), func() ([]decl.TypeDeclaration, bool, error) {
		all, err := x.searchOrder()
		if err != nil {
			return nil, false, err
		}
		out := []decl.TypeDeclaration{}
		for _, d := range all {
			if d != base && d.IsGeneric() && strings.HasPrefix(d.SimpleName(), base.SimpleName()) {
				out = append(out, d)
			}
		}
		return out, true, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(found), nil
}

// PreloadCaches fills the identity, qualified-name, simple-name and element
// caches from the registered model.
func (x *Index) PreloadCaches() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	all, err := x.searchOrder()
	if err != nil {
		return err
	}
	simple := make(map[string][]decl.TypeDeclaration)
	for _, d := range all {
		if rt := d.Type(); rt != nil {
			if _, ok := x.byType[rt]; !ok {
				x.byType[rt] = d
			}
		}
		if _, ok := x.byQualified[d.QualifiedName()]; !ok {
			x.byQualified[d.QualifiedName()] = d
		}
		key := d.SimpleName() + "\x00"
		simple[key] = append(simple[key], d)
		if obj := d.Element(); obj != nil {
			if _, ok := x.byElement[obj]; !ok {
				x.byElement[obj] = d
			}
		}
	}
	for key, ds := range simple {
		if _, ok := x.bySimple[key]; !ok {
			x.bySimple[key] = ds
		}
	}
	return nil
}

// ValidateCaches checks that every cached declaration still belongs to the
// registered model. Synthesised specialisations are checked through the
// base they were derived from.
func (x *Index) ValidateCaches() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	all, err := x.searchOrder()
	if err != nil {
		return err
	}
	known := make(map[decl.TypeDeclaration]bool, len(all))
	bases := make(map[string]bool, len(all))
	for _, d := range all {
		known[d] = true
		bases[d.PackageURI()+"."+d.SimpleName()] = true
	}

	var errs []error
	check := func(cache, key string, d decl.TypeDeclaration) {
		if known[d] || (d.IsSynthetic() && bases[d.PackageURI()+"."+d.SimpleName()]) {
			return
		}
		errs = append(errs, fmt.Errorf("%s cache entry %q: %s is not registered", cache, key, d.QualifiedName()))
	}
	for rt, d := range x.byType {
		check("type", rt.String(), d)
	}
	for k, d := range x.byName {
		check("name", k, d)
	}
	for k, d := range x.byQualified {
		check("qualified", k, d)
	}
	for k, ds := range x.bySimple {
		for _, d := range ds {
			check("simple", k, d)
		}
	}
	for obj, d := range x.byElement {
		check("element", obj.Id(), d)
	}
	return errors.Join(errs...)
}
