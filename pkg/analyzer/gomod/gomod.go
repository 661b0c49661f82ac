// Package gomod analyzes Go module definition files.
//
// go.mod is parsed textually: require directives carry enough information
// for identification without invoking the Go toolchain. Direct requirements
// form the "main" scope; requirements marked "// indirect" form the
// "indirect" scope, flat, since go.mod does not record who requires them.
package gomod

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/complykit/complykit/pkg/analyzer"
	"github.com/complykit/complykit/pkg/errors"
	"github.com/complykit/complykit/pkg/model"
)

// Name is the plugin and ecosystem name.
const Name = "GoMod"

func init() {
	analyzer.Register(Name, func() analyzer.PackageManager { return &Manager{} })
}

// Manager analyzes go.mod files.
type Manager struct{}

func (m *Manager) Name() string                  { return Name }
func (m *Manager) Supports(filename string) bool { return filename == "go.mod" }

// Analyze parses the go.mod at path.
func (m *Manager) Analyze(ctx context.Context, path string) (*analyzer.ProjectResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "opening %s", path)
	}
	defer f.Close()

	mod, err := parse(f)
	if err != nil {
		return nil, err
	}
	if mod.module == "" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s has no module directive", path)
	}

	result := &analyzer.ProjectResult{
		Project: model.Project{
			ID:         model.NewIdentifier(Name, "", mod.module, ""),
			ScopeNames: []string{"main"},
		},
		Scopes: map[string][]model.PackageReference{},
	}

	for _, req := range mod.direct {
		result.Scopes["main"] = append(result.Scopes["main"], reference(req))
		result.Packages = append(result.Packages, metadata(req))
	}
	if len(mod.indirect) > 0 {
		result.Project.ScopeNames = append(result.Project.ScopeNames, "indirect")
		for _, req := range mod.indirect {
			result.Scopes["indirect"] = append(result.Scopes["indirect"], reference(req))
			result.Packages = append(result.Packages, metadata(req))
		}
	}
	return result, nil
}

type requirement struct {
	path    string
	version string
}

type modFile struct {
	module   string
	direct   []requirement
	indirect []requirement
}

// identifier splits the module path into (namespace, name) at the last
// slash, matching the package-url convention for Go modules.
func identifier(req requirement) model.Identifier {
	namespace, name := "", req.path
	if i := strings.LastIndex(req.path, "/"); i >= 0 {
		namespace, name = req.path[:i], req.path[i+1:]
	}
	return model.NewIdentifier(Name, namespace, name, req.version)
}

func reference(req requirement) model.PackageReference {
	return model.PackageReference{ID: identifier(req), Linkage: model.LinkageStatic}
}

func metadata(req requirement) model.Package {
	id := identifier(req)
	return model.Package{
		ID:          id,
		PURL:        id.ToPURL().String(),
		HomepageURL: "https://" + req.path,
		VCS:         model.VCSInfo{Type: "Git", URL: "https://" + req.path},
	}
}

func parse(f *os.File) (modFile, error) {
	var mod modFile
	seen := make(map[string]bool)
	inRequire := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "module ") {
			mod.module = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "module ")), `"`)
			continue
		}

		// Handle require block
		if strings.HasPrefix(line, "require (") || line == "require(" {
			inRequire = true
			continue
		}
		if inRequire && line == ")" {
			inRequire = false
			continue
		}

		// Single-line require
		if strings.HasPrefix(line, "require ") && !strings.Contains(line, "(") {
			line = strings.TrimPrefix(line, "require ")
		} else if !inRequire {
			continue
		}

		req, indirect, ok := parseRequireLine(line)
		if !ok || seen[req.path] {
			continue
		}
		seen[req.path] = true
		if indirect {
			mod.indirect = append(mod.indirect, req)
		} else {
			mod.direct = append(mod.direct, req)
		}
	}
	if err := scanner.Err(); err != nil {
		return modFile{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "reading go.mod")
	}
	return mod, nil
}

func parseRequireLine(line string) (requirement, bool, bool) {
	indirect := strings.Contains(line, "// indirect")

	// Remove inline comments
	if idx := strings.Index(line, "//"); idx != -1 {
		line = line[:idx]
	}

	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return requirement{}, false, false
	}
	return requirement{path: fields[0], version: fields[1]}, indirect, true
}
