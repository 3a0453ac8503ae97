package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/horesheladil/drlamiaiassistent/pkg/archive"
)

// ContentType is the media type of exported transcripts.
const ContentType = "application/x-ndjson"

// WriteJSONL writes the entries of rec as JSON lines.
func WriteJSONL(w io.Writer, rec *Record) error {
	enc := json.NewEncoder(w)
	for i := range rec.Entries {
		if err := enc.Encode(&rec.Entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// ArchiveName returns the object name of an exported session.
func ArchiveName(id string) string {
	return "transcripts/" + id + ".jsonl"
}

// Export uploads rec to st as JSON lines under ArchiveName.
func Export(ctx context.Context, st archive.Store, rec *Record) error {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, rec); err != nil {
		return fmt.Errorf("transcript: encode %s: %w", rec.Session.ID, err)
	}
	return st.Put(ctx, ArchiveName(rec.Session.ID), ContentType, bytes.NewReader(buf.Bytes()))
}
