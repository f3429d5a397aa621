// Package packager builds the RasCAL-2 macOS installer.
//
// Run resolves the version from the tag, renders distribution.xml from its
// template, calls pkgbuild for the component package and productbuild for
// the final installer, then records the installer checksum and optionally
// publishes the result to S3.
package packager
