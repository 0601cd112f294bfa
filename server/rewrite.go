package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// Injector merges the resolved import map and the handler's data payload
// into a served HTML document.
type Injector interface {
	Inject(html []byte, imports map[string]string, data any, requestID string) ([]byte, error)
}

// DataScriptID is the element id of the injected server-data script.
const DataScriptID = "__serve_data__"

var headOpenRe = regexp.MustCompile(`(?i)<head[^>]*>`)

// HeadInjector is the default content rewriter. It places the import map
// immediately after the opening <head> tag, ahead of any other head
// content, followed by the server data as an application/json script
// readable by client code. Documents without a <head> get both blocks
// prepended.
type HeadInjector struct{}

func (HeadInjector) Inject(html []byte, imports map[string]string, data any, requestID string) ([]byte, error) {
	importMap, err := json.Marshal(map[string]any{"imports": imports})
	if err != nil {
		return nil, fmt.Errorf("failed to encode import map: %w", err)
	}

	// json.Marshal escapes angle brackets, so payload content cannot
	// break out of the script element.
	payload, err := json.Marshal(map[string]any{
		"requestId": requestID,
		"data":      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode server data: %w", err)
	}

	var blocks bytes.Buffer
	fmt.Fprintf(&blocks, `<script type="importmap">%s</script>`, importMap)
	fmt.Fprintf(&blocks, `<script id="%s" type="application/json">%s</script>`, DataScriptID, payload)

	if loc := headOpenRe.FindIndex(html); loc != nil {
		out := make([]byte, 0, len(html)+blocks.Len())
		out = append(out, html[:loc[1]]...)
		out = append(out, blocks.Bytes()...)
		out = append(out, html[loc[1]:]...)
		return out, nil
	}

	out := make([]byte, 0, len(html)+blocks.Len())
	out = append(out, blocks.Bytes()...)
	out = append(out, html...)
	return out, nil
}
