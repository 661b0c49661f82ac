// Package npm analyzes npm lockfiles.
//
// package-lock.json (lockfile versions 2 and 3) records the full installed
// tree under its "packages" map, keyed by filesystem location inside
// node_modules. Locations encode npm's conflict resolution: a dependency is
// looked up in the nearest enclosing node_modules directory, walking upwards
// to the top level. The analyzer reconstructs the logical dependency tree
// from that layout.
package npm

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"strings"

	"github.com/complykit/complykit/pkg/analyzer"
	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/model"
)

// Name is the plugin and ecosystem name.
const Name = "NPM"

func init() {
	analyzer.Register(Name, func() analyzer.PackageManager { return &Manager{} })
}

// Manager analyzes package-lock.json files.
type Manager struct{}

func (m *Manager) Name() string                  { return Name }
func (m *Manager) Supports(filename string) bool { return filename == "package-lock.json" }

type lockFile struct {
	Name            string               `json:"name"`
	LockfileVersion int                  `json:"lockfileVersion"`
	Packages        map[string]lockEntry `json:"packages"`
}

type lockEntry struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	License          string            `json:"license"`
	Dev              bool              `json:"dev"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Resolved         string            `json:"resolved"`
	Integrity        string            `json:"integrity"`
}

// Analyze parses the package-lock.json at path.
func (m *Manager) Analyze(ctx context.Context, path string) (*analyzer.ProjectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "opening %s", path)
	}

	var lock lockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parsing %s", path)
	}
	if lock.LockfileVersion < 2 || lock.Packages == nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"lockfile version %d is not supported, need version 2 or 3", lock.LockfileVersion)
	}

	root, ok := lock.Packages[""]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s has no root package entry", path)
	}
	projectName := root.Name
	if projectName == "" {
		projectName = lock.Name
	}

	b := &treeBuilder{lock: lock}
	result := &analyzer.ProjectResult{
		Project: model.Project{
			ID: model.NewIdentifier(Name, scopeOf(projectName), nameOf(projectName), root.Version),
		},
		Scopes: map[string][]model.PackageReference{},
	}

	if refs := b.roots(root.Dependencies); len(refs) > 0 {
		result.Scopes["dependencies"] = refs
		result.Project.ScopeNames = append(result.Project.ScopeNames, "dependencies")
	}
	if refs := b.roots(root.DevDependencies); len(refs) > 0 {
		result.Scopes["devDependencies"] = refs
		result.Project.ScopeNames = append(result.Project.ScopeNames, "devDependencies")
	}

	result.Packages = b.packages()
	result.Issues = b.issues
	return result, nil
}

// treeBuilder reconstructs dependency trees from the flat location map.
type treeBuilder struct {
	lock   lockFile
	pkgs   map[model.Identifier]model.Package
	issues []model.Issue
}

// roots builds the reference trees for the given top-level dependency names.
func (b *treeBuilder) roots(deps map[string]string) []model.PackageReference {
	var refs []model.PackageReference
	for _, name := range sortedKeys(deps) {
		if ref, ok := b.build("", name, nil); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// build resolves name from the given parent location and recurses into its
// dependencies. Locations already on the current path are cut; the lockfile
// can legitimately contain dependency cycles.
func (b *treeBuilder) build(parent, name string, onPath []string) (model.PackageReference, bool) {
	location, entry, ok := b.resolve(parent, name)
	if !ok {
		b.issues = append(b.issues, model.NewWarning(Name,
			"dependency %s of %q is not in the lockfile", name, parent))
		return model.PackageReference{}, false
	}
	if slices.Contains(onPath, location) {
		return model.PackageReference{}, false
	}

	ref := model.PackageReference{
		ID:      model.NewIdentifier(Name, scopeOf(name), nameOf(name), entry.Version),
		Linkage: model.LinkageDynamic,
	}
	b.record(ref.ID, entry)

	onPath = append(onPath, location)
	for _, dep := range sortedKeys(entry.Dependencies) {
		if child, ok := b.build(location, dep, onPath); ok {
			ref.Dependencies = append(ref.Dependencies, child)
		}
	}
	return ref, true
}

// resolve finds the installed location of name as npm would: the nearest
// enclosing node_modules directory wins.
func (b *treeBuilder) resolve(parent, name string) (string, lockEntry, bool) {
	for {
		location := "node_modules/" + name
		if parent != "" {
			location = parent + "/" + location
		}
		if entry, ok := b.lock.Packages[location]; ok {
			return location, entry, true
		}
		if parent == "" {
			return "", lockEntry{}, false
		}
		if i := strings.LastIndex(parent, "/node_modules/"); i >= 0 {
			parent = parent[:i]
		} else {
			parent = ""
		}
	}
}

func (b *treeBuilder) record(id model.Identifier, entry lockEntry) {
	if b.pkgs == nil {
		b.pkgs = make(map[model.Identifier]model.Package)
	}
	if _, ok := b.pkgs[id]; ok {
		return
	}
	pkg := model.Package{
		ID:   id,
		PURL: id.ToPURL().String(),
	}
	if entry.License != "" {
		pkg.DeclaredLicenses = []string{entry.License}
		pkg.DeclaredLicenseSPDX = entry.License
	}
	if entry.Resolved != "" {
		pkg.SourceArtifact = model.Artifact{URL: entry.Resolved, Digest: entry.Integrity}
	}
	b.pkgs[id] = pkg
}

func (b *treeBuilder) packages() []model.Package {
	out := make([]model.Package, 0, len(b.pkgs))
	for _, pkg := range b.pkgs {
		out = append(out, pkg)
	}
	slices.SortFunc(out, func(x, y model.Package) int { return x.ID.Compare(y.ID) })
	return out
}

// scopeOf returns the npm scope of a possibly scoped package name, e.g.
// "@babel" for "@babel/core", empty for unscoped names.
func scopeOf(name string) string {
	if strings.HasPrefix(name, "@") {
		if i := strings.Index(name, "/"); i > 0 {
			return name[:i]
		}
	}
	return ""
}

// nameOf returns the package name without its npm scope.
func nameOf(name string) string {
	if strings.HasPrefix(name, "@") {
		if i := strings.Index(name, "/"); i > 0 {
			return name[i+1:]
		}
	}
	return name
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
