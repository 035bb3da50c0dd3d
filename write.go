package pdfsign

import "io"

// Write emits signed bytes to w. Sign already returns final bytes; Write
// exists as a named operation so format/consistency checks have a
// dedicated seam to grow into (mirroring digitorus/pdfsign's own Write
// doing double duty as "finalize and emit"), and so callers follow the
// spec's three-verb Read/Sign/Write shape instead of writing raw bytes
// themselves.
func Write(b []byte, w io.Writer) error {
	_, err := w.Write(b)
	return err
}
