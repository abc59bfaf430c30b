package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/hazyhaar/moulinette/moulin"
)

const docBodyXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Title</w:t></w:r></w:p>
<w:p/>
<w:p><w:r><w:t>Body text</w:t></w:r></w:p>
</w:body>
</w:document>`

// docxBytes builds a minimal .docx archive in memory.
func docxBytes(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.UploadDir = t.TempDir()
	svc, err := New(cfg, moulin.New(moulin.Config{}), nil)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestProcess_Docx(t *testing.T) {
	svc := newTestService(t)
	content := docxBytes(t, docBodyXML)

	rec, err := svc.Process(context.Background(), Upload{
		Reader:      bytes.NewReader(content),
		Filename:    "report.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" {
		t.Error("record must carry a generated ID")
	}
	if rec.FileName != "report.docx" {
		t.Errorf("FileName = %q", rec.FileName)
	}
	if rec.FileSize != int64(len(content)) {
		t.Errorf("FileSize = %d, want %d", rec.FileSize, len(content))
	}
	if !strings.HasPrefix(rec.FileType, "application/vnd.openxmlformats") {
		t.Errorf("FileType = %q, want the declared content-type untouched", rec.FileType)
	}
	if rec.Markdown != "Title\n\nBody text" {
		t.Errorf("Markdown = %q", rec.Markdown)
	}
}

func TestProcess_RemovesStagedFile(t *testing.T) {
	// WHAT: The staged copy is gone after Process returns, success or not.
	// WHY: The upload dir must not accumulate documents between requests.
	svc := newTestService(t)

	if _, err := svc.Process(context.Background(), Upload{
		Reader:   bytes.NewReader(docxBytes(t, docBodyXML)),
		Filename: "a.docx",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Process(context.Background(), Upload{
		Reader:   strings.NewReader("not a zip"),
		Filename: "b.docx",
	}); err == nil {
		t.Fatal("corrupt docx must fail")
	}

	entries, err := os.ReadDir(svc.cfg.UploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir not empty after Process: %d entries", len(entries))
	}
}

func TestProcess_ClassifiedFailurePassesThrough(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Process(context.Background(), Upload{
		Reader:   strings.NewReader("garbage"),
		Filename: "broken.docx",
	})
	if !errors.Is(err, moulin.ErrExtraction) {
		t.Errorf("err = %v, want ErrExtraction", err)
	}
}

func TestProcess_CancelledWhileQueued(t *testing.T) {
	// WHAT: A context cancelled while waiting for a worker slot returns
	// the context error without staging anything.
	svc := newTestService(t)
	svc.cfg.MaxConcurrent = 1
	svc.slots = make(chan struct{}, 1)
	svc.slots <- struct{}{} // occupy the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Process(ctx, Upload{
		Reader:   bytes.NewReader(docxBytes(t, docBodyXML)),
		Filename: "queued.docx",
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
