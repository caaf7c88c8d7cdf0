package filelist

import (
	"context"
	"encoding/xml"
	"errors"
	"io"

	"github.com/sdejongh/dirlisting/pkg/models"
)

// Load reads a FileListing document from r and applies it to the tree.
// It returns the number of directories processed, which is also valid when
// an error stops the load part way; the tree keeps what was applied.
func (l *Loader) Load(ctx context.Context, r io.Reader) (int, error) {
	if l.Root == nil {
		return 0, errors.New("loader has no root directory")
	}
	if l.Index == nil {
		l.Index = models.NewPathIndex()
	}

	dec := xml.NewDecoder(r)
	dec.Strict = true

	var pending xml.Token
	next := func() (xml.Token, error) {
		if pending != nil {
			tok := pending
			pending = nil
			return tok, nil
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		return xml.CopyToken(tok), nil
	}

	for {
		tok, err := next()
		if err == io.EOF {
			return l.dirsLoaded, nil
		}
		if err != nil {
			return l.dirsLoaded, models.Malformed("parse", "%v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			simple := false
			following, err := next()
			if err != nil && err != io.EOF {
				return l.dirsLoaded, models.Malformed("parse", "%v", err)
			}
			if end, ok := following.(xml.EndElement); ok && end.Name.Local == t.Name.Local {
				simple = true
			} else {
				pending = following
			}

			if err := l.StartTag(ctx, t.Name.Local, attributes(t.Attr), simple); err != nil {
				return l.dirsLoaded, err
			}
		case xml.EndElement:
			l.EndTag(t.Name.Local)
		}
	}
}

func attributes(attrs []xml.Attr) Attributes {
	out := make(Attributes, len(attrs))
	for _, a := range attrs {
		out[a.Name.Local] = a.Value
	}
	return out
}
