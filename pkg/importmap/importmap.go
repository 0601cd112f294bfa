// Package importmap resolves declarative frontend package descriptors into
// a map from package specifier to a versioned delivery URL on an ESM CDN.
package importmap

import (
	"strings"
)

// DefaultBaseURL is the delivery host used when a Resolver does not set one.
const DefaultBaseURL = "https://esm.sh/"

// defaultVersion is assumed for any package root declared without a version
// and for dependency references whose root was never declared.
const defaultVersion = "latest"

// Descriptor declares one frontend package dependency.
type Descriptor struct {
	// Name is the package specifier, optionally with a sub-path after the
	// package root ("react", "@scope/pkg/client", "preact/hooks").
	Name string `yaml:"name" json:"name"`
	// Version pins the package root's version. Empty means "latest".
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
	// Deps lists package names whose resolved versions must be propagated
	// into this package's delivery URL.
	Deps []string `yaml:"deps,omitempty" json:"deps,omitempty"`
}

// Resolver builds import maps against a fixed delivery host.
type Resolver struct {
	// BaseURL is the delivery host prefix. Defaults to DefaultBaseURL.
	BaseURL string
}

// PackageRoot returns the root segment of a package specifier: the scoped
// "@org/name" pair for scoped packages, otherwise everything before the
// first path separator.
func PackageRoot(name string) string {
	if strings.HasPrefix(name, "@") {
		parts := strings.SplitN(name, "/", 3)
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
		return name
	}
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[:idx]
	}
	return name
}

// Resolve turns an ordered descriptor list into a map from each declared
// name to its delivery URL.
//
// Versions are agreed upon per package root in a first pass: when the same
// root is declared more than once, the later declaration's version wins,
// which lets a caller override a transitively declared pin. Each
// descriptor's URL then embeds its own root's agreed version, any sub-path
// verbatim, the agreed versions of its declared deps as a query parameter,
// and a dev marker when dev is set. A dep whose root was never declared
// resolves to "latest".
func (r Resolver) Resolve(descriptors []Descriptor, dev bool) map[string]string {
	base := r.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	versions := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		version := d.Version
		if version == "" {
			version = defaultVersion
		}
		versions[PackageRoot(d.Name)] = version
	}

	resolved := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		root := PackageRoot(d.Name)
		subpath := strings.TrimPrefix(d.Name, root)

		var url strings.Builder
		url.WriteString(base)
		url.WriteString(root)
		url.WriteString("@")
		url.WriteString(versions[root])
		url.WriteString(subpath)

		var params []string
		if len(d.Deps) > 0 {
			pins := make([]string, 0, len(d.Deps))
			for _, dep := range d.Deps {
				depRoot := PackageRoot(dep)
				version, ok := versions[depRoot]
				if !ok {
					version = defaultVersion
				}
				pins = append(pins, depRoot+"@"+version)
			}
			params = append(params, "deps="+strings.Join(pins, ","))
		}
		if dev {
			params = append(params, "dev")
		}
		if len(params) > 0 {
			url.WriteString("?")
			url.WriteString(strings.Join(params, "&"))
		}

		resolved[d.Name] = url.String()
	}
	return resolved
}

// Resolve resolves descriptors against the default delivery host.
func Resolve(descriptors []Descriptor, dev bool) map[string]string {
	return Resolver{}.Resolve(descriptors, dev)
}
