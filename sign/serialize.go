package sign

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/mattetti/filebuffer"
)

// PendingUpdate is the set of new or replaced indirect objects written by
// one incremental update, plus the Size the resulting xref table must
// declare.
type PendingUpdate struct {
	Objects []StagedObject
	// MaxObjID is the highest object ID referenced anywhere in the
	// document after this update (new objects included); the new xref's
	// /Size is MaxObjID+1.
	MaxObjID uint32
}

var startxrefPattern = regexp.MustCompile(`startxref\s+(\d+)\s*%%EOF\s*$`)

// priorXrefStart locates the last "startxref" offset in an existing PDF's
// bytes, the value the new update's trailer must chain to via /Prev.
// Grounded on digitorus-pdfsign's sign/pdftrailer.go, which reads the same
// field off the already-parsed trailer; this module instead re-derives it
// textually since IncrementalSerializer works purely on bytes.
func priorXrefStart(prior []byte) (int64, error) {
	m := startxrefPattern.FindSubmatch(trailingWindow(prior))
	if m == nil {
		return 0, fmt.Errorf("%w: no startxref footer found in prior document", ErrPatternNotFound)
	}
	return strconv.ParseInt(string(m[1]), 10, 64)
}

// trailingWindow returns up to the last 2KB of b, enough to contain any
// well-formed PDF's final startxref/%%EOF footer without scanning the
// whole file.
func trailingWindow(b []byte) []byte {
	const window = 2048
	if len(b) <= window {
		return b
	}
	return b[len(b)-window:]
}

// SerializeIncrementalUpdate appends one incremental update to prior,
// rendering the given objects, a classic cross-reference table covering
// only this revision's objects, and a trailer chaining back to prior's
// own xref via /Prev. Prior bytes are never modified or recompressed —
// only this new revision's streams are compressed, by the caller, before
// the objects reach here.
func SerializeIncrementalUpdate(prior []byte, rootObjID uint32, update PendingUpdate) ([]byte, error) {
	prevStart, err := priorXrefStart(prior)
	if err != nil {
		return nil, err
	}

	out := filebuffer.New(append([]byte(nil), prior...))
	if _, err := out.Seek(0, 2); err != nil {
		return nil, fmt.Errorf("sign: seeking to end of staging buffer: %w", err)
	}
	if out.Buff.Len() > 0 && out.Buff.Bytes()[out.Buff.Len()-1] != '\n' {
		if _, err := out.Write([]byte("\n")); err != nil {
			return nil, err
		}
	}

	offsets := make(map[uint32]int64, len(update.Objects))
	for _, obj := range update.Objects {
		offsets[obj.ObjID] = int64(out.Buff.Len())
		if obj.Stream != nil {
			if _, err := out.Write(obj.Stream); err != nil {
				return nil, err
			}
		} else {
			fmt.Fprintf(out, "%d 0 obj\n<<%s>>\nendobj\n", obj.ObjID, obj.Dict)
		}
	}

	xrefStart := int64(out.Buff.Len())
	writeIncrementalXref(out, offsets)

	fmt.Fprintf(out, "trailer\n<< /Size %d /Root %d 0 R /Prev %d >>\n", update.MaxObjID+1, rootObjID, prevStart)
	fmt.Fprintf(out, "startxref\n%d\n%%%%EOF\n", xrefStart)

	return out.Buff.Bytes(), nil
}

// writeIncrementalXref writes one subsection per contiguous run of object
// IDs present in offsets, in ascending order. An incremental update's
// xref table need only list the objects it actually touches; classic
// readers chain unlisted IDs through /Prev.
//
// Entry format ("%010d 00000 n\r\n") is grounded on digitorus-pdfsign's
// sign/pdfxref_table.go::writeIncrXrefTable.
func writeIncrementalXref(out *filebuffer.Buffer, offsets map[uint32]int64) {
	ids := make([]uint32, 0, len(offsets))
	for id := range offsets {
		ids = append(ids, id)
	}
	sortUint32(ids)

	fmt.Fprint(out, "xref\n")
	i := 0
	for i < len(ids) {
		start := i
		for i+1 < len(ids) && ids[i+1] == ids[i]+1 {
			i++
		}
		run := ids[start : i+1]
		fmt.Fprintf(out, "%d %d\n", run[0], len(run))
		for _, id := range run {
			fmt.Fprintf(out, "%010d 00000 n \r\n", offsets[id])
		}
		i++
	}
}

func sortUint32(ids []uint32) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
