package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/docsql/internal/store"
)

// printDocuments writes a document list in the selected format.
func printDocuments(w io.Writer, format string, docs []store.Document) error {
	if format == "json" {
		return printJSON(w, documentsJSON(docs))
	}
	for _, doc := range docs {
		status := "live"
		if doc.Deleted {
			status = "tombstone"
		}
		fmt.Fprintf(w, "%v\trev=%s\t%s\n", doc.ID, doc.Revision, status)

		names := make([]string, 0, len(doc.Fields))
		for name := range doc.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %v\n", name, doc.Fields[name])
		}
	}
	fmt.Fprintf(w, "%d document(s)\n", len(docs))
	return nil
}

func documentsJSON(docs []store.Document) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		m := map[string]any{
			"id":       doc.ID,
			"revision": doc.Revision,
			"deleted":  doc.Deleted,
			"fields":   doc.Fields,
		}
		out[i] = m
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
