package filelist

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sdejongh/dirlisting/pkg/models"
)

// Generator is written to generated documents
const Generator = "dirlisting"

// Header describes the FileListing element of a generated document
type Header struct {
	// Base is the path of the described directory
	Base string

	// BaseDate is the modification time of the base directory
	BaseDate time.Time

	// Generator names the producing client; defaults to Generator
	Generator string
}

// Encode writes dir as a FileListing document. When recursive is false only
// the direct content of dir is described and its subdirectories are written
// as incomplete with their total size.
func Encode(w io.Writer, h Header, dir *models.Directory, recursive bool) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	gen := h.Generator
	if gen == "" {
		gen = Generator
	}
	root := xml.StartElement{
		Name: xml.Name{Local: ElemFileListing},
		Attr: []xml.Attr{
			attr(AttrVersion, "1"),
			attr(AttrBase, models.ToAdcPath(h.Base)),
			attr(AttrGenerator, gen),
		},
	}
	if !h.BaseDate.IsZero() {
		root.Attr = append(root.Attr, attr(AttrBaseDate, strconv.FormatInt(h.BaseDate.Unix(), 10)))
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	if err := encodeContent(enc, dir, recursive); err != nil {
		return err
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush listing: %w", err)
	}
	return nil
}

func encodeContent(enc *xml.Encoder, dir *models.Directory, recursive bool) error {
	for _, d := range dir.Directories {
		if err := encodeDirectory(enc, d, recursive); err != nil {
			return err
		}
	}
	for _, f := range dir.Files {
		el := xml.StartElement{
			Name: xml.Name{Local: ElemFile},
			Attr: []xml.Attr{
				attr(AttrName, f.Name),
				attr(AttrSize, strconv.FormatInt(f.Size, 10)),
				attr(AttrTTH, f.TTH),
			},
		}
		if !f.Date.IsZero() {
			el.Attr = append(el.Attr, attr(AttrDate, strconv.FormatInt(f.Date.Unix(), 10)))
		}
		if err := enc.EncodeToken(el); err != nil {
			return fmt.Errorf("failed to encode file %s: %w", f.Name, err)
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return fmt.Errorf("failed to encode file %s: %w", f.Name, err)
		}
	}
	return nil
}

func encodeDirectory(enc *xml.Encoder, d *models.Directory, recursive bool) error {
	el := xml.StartElement{
		Name: xml.Name{Local: ElemDirectory},
		Attr: []xml.Attr{attr(AttrName, d.Name)},
	}

	expand := recursive && d.IsComplete()
	if !expand {
		el.Attr = append(el.Attr,
			attr(AttrIncomplete, "1"),
			attr(AttrSize, strconv.FormatInt(d.TotalSize(false), 10)),
		)
		if len(d.Directories) > 0 || d.Type == models.DirIncompleteWithChildren {
			el.Attr = append(el.Attr, attr(AttrChildren, "1"))
		}
	}
	if !d.Date.IsZero() {
		el.Attr = append(el.Attr, attr(AttrDate, strconv.FormatInt(d.Date.Unix(), 10)))
	}

	if err := enc.EncodeToken(el); err != nil {
		return fmt.Errorf("failed to encode directory %s: %w", d.Name, err)
	}
	if expand {
		if err := encodeContent(enc, d, true); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(el.End()); err != nil {
		return fmt.Errorf("failed to encode directory %s: %w", d.Name, err)
	}
	return nil
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}
