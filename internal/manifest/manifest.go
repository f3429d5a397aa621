package manifest

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rascalsoftware/rascal-packager/internal/logger"
)

const (
	// VersionPlaceholder is replaced with the normalized version.
	VersionPlaceholder = "{{VERSION}}"
	// ArchPlaceholder is replaced with the architecture token.
	ArchPlaceholder = "{{ARCH}}"
	// ProductPlaceholder is replaced with the product name.
	ProductPlaceholder = "{{PRODUCT}}"

	// manifestFileMode is the permission of the rendered distribution.xml.
	manifestFileMode os.FileMode = 0o644
)

// ErrMalformedManifest is returned when the rendered manifest is not well-formed XML.
var ErrMalformedManifest = errors.New("rendered manifest is not well-formed XML")

// placeholderPattern matches any {{NAME}} token left after substitution.
var placeholderPattern = regexp.MustCompile(`\{\{[A-Z0-9_]+\}\}`)

// Vars are the values substituted into the template.
type Vars struct {
	// Version is the normalized numeric version.
	Version string
	// Arch is the architecture token.
	Arch string
	// Product is the product name.
	Product string
}

// Render substitutes every placeholder occurrence and checks the result is well-formed XML.
// Values are XML-escaped, so they are safe in both text and attribute positions.
func Render(template []byte, vars Vars) ([]byte, error) {
	replacer := strings.NewReplacer(
		VersionPlaceholder, escape(vars.Version),
		ArchPlaceholder, escape(vars.Arch),
		ProductPlaceholder, escape(vars.Product),
	)

	rendered := []byte(replacer.Replace(string(template)))

	if err := checkWellFormed(rendered); err != nil {
		return nil, err
	}

	return rendered, nil
}

func escape(value string) string {
	var buf bytes.Buffer

	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&buf, []byte(value))

	return buf.String()
}

// UnresolvedPlaceholders lists the distinct {{NAME}} tokens still present in doc.
func UnresolvedPlaceholders(doc []byte) []string {
	matches := placeholderPattern.FindAll(doc, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	result := make([]string, 0, len(matches))

	for _, m := range matches {
		token := string(m)
		if _, ok := seen[token]; ok {
			continue
		}

		seen[token] = struct{}{}
		result = append(result, token)
	}

	return result
}

// RenderFile reads the template at in, renders it and writes the manifest to out.
func RenderFile(ctx context.Context, in, out string, vars Vars) error {
	template, err := os.ReadFile(filepath.Clean(in))
	if err != nil {
		return fmt.Errorf("read manifest template: %w", err)
	}

	rendered, err := Render(template, vars)
	if err != nil {
		return fmt.Errorf("render %s: %w", in, err)
	}

	if leftovers := UnresolvedPlaceholders(rendered); len(leftovers) > 0 {
		logger.WarnKV(ctx, "Manifest still contains placeholders", "template", in, "placeholders", leftovers)
	}

	if err = os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(out), rendered, manifestFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	logger.InfoKV(ctx, "Rendered distribution manifest", "path", out)

	return nil
}

// checkWellFormed walks every token of doc and requires a single root element.
func checkWellFormed(doc []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	roots := 0
	depth := 0

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedManifest, err)
		}

		switch token.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}

			depth++
		case xml.EndElement:
			depth--
		}
	}

	if roots != 1 {
		return fmt.Errorf("%w: expected one root element, found %d", ErrMalformedManifest, roots)
	}

	return nil
}
