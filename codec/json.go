package codec

import (
	"bytes"
	"io"

	j "github.com/goccy/go-json"

	kvtree "github.com/reoring/kvtree"
)

// JSONIndent returns a renderer producing indented JSON with object keys in
// tree order, terminated by a newline.
func JSONIndent(indent string) kvtree.Renderer { return jsonIndent{indent: indent} }

type jsonIndent struct{ indent string }

func (jsonIndent) Name() string { return "json-indent" }

func (r jsonIndent) Render(w io.Writer, n kvtree.Node) error {
	compact, err := kvtree.MarshalJSON(n)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := j.Indent(&buf, compact, "", r.indent); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}
