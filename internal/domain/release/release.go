package release

import (
	"fmt"
	"strings"
)

const (
	// DevelopmentVersion is the sentinel version used for untagged builds.
	DevelopmentVersion = "main"

	// DefaultProduct is the product name that prefixes installer filenames.
	DefaultProduct = "RasCAL-2"

	// InstallerExtension is the extension of both component and product packages.
	InstallerExtension = ".pkg"

	// versionPrefix is stripped from tags such as "v1.2.3".
	versionPrefix = "v"

	// platformSegment names the target OS inside installer filenames.
	platformSegment = "macos"
)

// Release describes a single build: the tag it was requested with,
// the normalized version and the target architecture token.
type Release struct {
	// Tag is the raw tag as supplied on the command line.
	Tag string
	// Version is the numeric version derived from Tag.
	Version string
	// Arch is an opaque architecture token, e.g. arm64 or x86_64.
	Arch string
}

// Resolve builds a Release from a raw tag and architecture token.
// The tag is kept verbatim; only the architecture token is trimmed.
func Resolve(tag, arch string) Release {
	return Release{
		Tag:     tag,
		Version: NormalizeVersion(tag),
		Arch:    strings.TrimSpace(arch),
	}
}

// NormalizeVersion strips a single leading "v" from the tag.
// An empty tag yields DevelopmentVersion; anything else passes through unchanged.
func NormalizeVersion(tag string) string {
	if tag == "" {
		return DevelopmentVersion
	}

	return strings.TrimPrefix(tag, versionPrefix)
}

// IsDevelopment reports whether the version is the development sentinel.
func IsDevelopment(version string) bool {
	return version == DevelopmentVersion
}

// InstallerFilename composes the final installer filename.
// Development builds omit the version segment.
func InstallerFilename(product, version, arch string) string {
	if product == "" {
		product = DefaultProduct
	}

	if IsDevelopment(version) {
		return fmt.Sprintf("%s-%s-%s%s", product, platformSegment, arch, InstallerExtension)
	}

	return fmt.Sprintf("%s-%s-%s-%s%s", product, version, platformSegment, arch, InstallerExtension)
}

// IsDevelopment reports whether the release is an untagged development build.
func (r Release) IsDevelopment() bool {
	return IsDevelopment(r.Version)
}

// InstallerFilename returns the installer filename for this release.
func (r Release) InstallerFilename(product string) string {
	return InstallerFilename(product, r.Version, r.Arch)
}

// ComponentFilename returns the filename of the intermediate component package.
func (r Release) ComponentFilename(name string) string {
	name = strings.TrimSuffix(name, InstallerExtension)
	if name == "" {
		name = strings.ToLower(DefaultProduct)
	}

	return name + InstallerExtension
}

// String renders the release for logs.
func (r Release) String() string {
	return fmt.Sprintf("%s (tag %q, arch %s)", r.Version, r.Tag, r.Arch)
}
