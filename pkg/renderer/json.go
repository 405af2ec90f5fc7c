package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/northcutted/pkgextract/pkg/types"
)

// Render serializes result as JSON indented by two spaces, with object keys
// in lexicographic order at every level and a trailing newline. The same
// result always renders to the same bytes.
func Render(result *types.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("failed to render analysis result: %w", err)
	}
	return buf.Bytes(), nil
}
