package filelist

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/dirlisting/pkg/models"
)

func TestEncodePartial(t *testing.T) {
	dir := models.NewDirectory("share", models.DirNormal, 0, time.Time{})
	sub := dir.AddDirectory(models.NewDirectory("sub", models.DirNormal, 0, time.Time{}))
	sub.AddDirectory(models.NewDirectory("deep", models.DirNormal, 0, time.Time{}))
	sub.AddFile(models.NewFile("a.bin", 40, hash1, time.Time{}))
	dir.AddFile(models.NewFile("b.bin", 2, hash2, time.Unix(1700000000, 0)))

	var buf bytes.Buffer
	if err := Encode(&buf, Header{Base: "/share/"}, dir, false); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`Base="/share/"`,
		`<Directory Name="sub" Incomplete="1" Size="40" Children="1">`,
		`<File Name="b.bin" Size="2" TTH="` + hash2 + `" Date="1700000000">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "a.bin") {
		t.Error("non-recursive output should not describe files of subdirectories")
	}

	t.Run("LoadsBack", func(t *testing.T) {
		root := models.NewRoot()
		idx := models.NewPathIndex()
		l := &Loader{Root: root, Index: idx, Base: "/share/", Merge: true, Partial: true}
		if _, err := l.Load(context.Background(), strings.NewReader(out)); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		got := root.FindDirectory("share/sub")
		if got == nil {
			t.Fatal("share/sub not loaded")
		}
		if got.Type != models.DirIncompleteWithChildren {
			t.Errorf("Type = %s, want %s", got.Type, models.DirIncompleteWithChildren)
		}
		if got.TotalSize(false) != 40 {
			t.Errorf("TotalSize() = %d, want 40", got.TotalSize(false))
		}
	})
}
