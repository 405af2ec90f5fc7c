package analysis

import (
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/northcutted/pkgextract/pkg/types"
)

func rpmPackageURL(name, version string) string {
	return packageurl.NewPackageURL(packageurl.TypeRPM, "", name, version, nil, "").ToString()
}

// pypiPackageURL normalizes the name as PyPI does: lowercase, '_' -> '-'.
func pypiPackageURL(name, version string) string {
	name = strings.ReplaceAll(strings.ToLower(name), "_", "-")
	return packageurl.NewPackageURL(packageurl.TypePyPi, "", name, version, nil, "").ToString()
}

func withRPMPackageURLs(pkgs []types.RPMPackage) []types.RPMPackage {
	out := make([]types.RPMPackage, len(pkgs))
	for i, p := range pkgs {
		if p.Name != "" {
			p.PURL = rpmPackageURL(p.Name, p.Version)
		}
		out[i] = p
	}
	return out
}

func withPyPIPackageURLs(pkgs []types.PyPIPackage) []types.PyPIPackage {
	out := make([]types.PyPIPackage, len(pkgs))
	for i, p := range pkgs {
		if p.Name() != "" {
			p = p.WithPURL(pypiPackageURL(p.Name(), p.Version()))
		}
		out[i] = p
	}
	return out
}
