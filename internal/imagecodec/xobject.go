package imagecodec

import (
	"bytes"
	"compress/zlib"
	"fmt"
)

// ImageXObject renders one Plane as raw PDF indirect-object bytes: a
// dictionary carrying /Width, /Height, /BitsPerComponent, /ColorSpace,
// /Interpolate false and, when sMaskObjID is non-zero, /SMask referencing
// the alpha plane's own object — followed by the FlateDecode-compressed
// plane data as the stream body.
//
// compressLevel follows compress/zlib's level constants.
func ImageXObject(objID uint32, p Plane, sMaskObjID uint32, compressLevel int) ([]byte, error) {
	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, compressLevel)
	if err != nil {
		return nil, fmt.Errorf("imagecodec: zlib writer: %w", err)
	}
	if _, err := zw.Write(p.Data); err != nil {
		return nil, fmt.Errorf("imagecodec: compress plane: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("imagecodec: close zlib writer: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", objID)
	buf.WriteString("<<\n")
	buf.WriteString("  /Type /XObject\n")
	buf.WriteString("  /Subtype /Image\n")
	fmt.Fprintf(&buf, "  /Width %d\n", p.Width)
	fmt.Fprintf(&buf, "  /Height %d\n", p.Height)
	fmt.Fprintf(&buf, "  /BitsPerComponent %d\n", p.BitsPerComponent)
	fmt.Fprintf(&buf, "  /ColorSpace /%s\n", p.ColorSpace)
	buf.WriteString("  /Interpolate false\n")
	buf.WriteString("  /Filter /FlateDecode\n")
	if sMaskObjID != 0 {
		fmt.Fprintf(&buf, "  /SMask %d 0 R\n", sMaskObjID)
	}
	fmt.Fprintf(&buf, "  /Length %d\n", compressed.Len())
	buf.WriteString(">>\n")
	buf.WriteString("stream\n")
	buf.Write(compressed.Bytes())
	buf.WriteString("\nendstream\n")
	buf.WriteString("endobj\n")

	return buf.Bytes(), nil
}

// FormXObject wraps an already-written Image XObject (objID imageObjID) in
// a Form XObject whose content stream is exactly:
//
//	q  w 0 0 h 0 0 cm  /Name Do  Q
//
// i.e. save state, scale unit-square space to the target rectangle's
// width/height, invoke the named image, restore state. The image is
// always invoked at content-stream position (0,0); the annotation's own
// /Rect supplies the page placement.
//
// Grounded on the Rust reference's image_insert.rs::add_image_as_form_xobject,
// the canonical source for this exact operator sequence.
func FormXObject(objID, imageObjID uint32, imageName string, width, height float64) []byte {
	content := fmt.Sprintf("q\n%g 0 0 %g 0 0 cm\n/%s Do\nQ\n", width, height, imageName)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", objID)
	buf.WriteString("<<\n")
	buf.WriteString("  /Type /XObject\n")
	buf.WriteString("  /Subtype /Form\n")
	fmt.Fprintf(&buf, "  /BBox [0 0 %g %g]\n", width, height)
	buf.WriteString("  /Resources <<\n")
	buf.WriteString("    /XObject <<\n")
	fmt.Fprintf(&buf, "      /%s %d 0 R\n", imageName, imageObjID)
	buf.WriteString("    >>\n")
	buf.WriteString("  >>\n")
	fmt.Fprintf(&buf, "  /Length %d\n", len(content))
	buf.WriteString(">>\n")
	buf.WriteString("stream\n")
	buf.WriteString(content)
	buf.WriteString("endstream\n")
	buf.WriteString("endobj\n")

	return buf.Bytes()
}
