package moulin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestExtractPDF_NativeText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "native.pdf")
	os.WriteFile(path, buildTextPDF("Hello World from a native text layer"), 0644)

	engine := &fakeEngine{}
	raster := &fakeRaster{}
	pipe := New(Config{OCR: engine, Raster: raster})
	out, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "native.pdf"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "Hello World") {
		t.Errorf("out = %q, want native text", out)
	}
	// A text layer anywhere means OCR never runs.
	if engine.calls != 0 || raster.calls != 0 {
		t.Errorf("ocr backend touched: %d recognize, %d rasterize calls", engine.calls, raster.calls)
	}
}

func TestExtractPDF_PageBreakJoin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pages.pdf")
	os.WriteFile(path, buildTextPDF("First page text", "Second page text"), 0644)

	pipe := New(Config{})
	out, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "pages.pdf"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "First page text\n\n--- Page Break ---\n\nSecond page text"
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestExtractPDF_BlankPagesDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.pdf")
	os.WriteFile(path, buildTextPDF("Only page with text", ""), 0644)

	pipe := New(Config{})
	out, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "mixed.pdf"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != "Only page with text" {
		t.Errorf("out = %q, want the single non-empty page without a break marker", out)
	}
}

func TestExtractPDF_ScannedFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	os.WriteFile(path, buildImagePDF(), 0644)

	engine := &fakeEngine{}
	raster := &fakeRaster{}
	pipe := New(Config{OCR: engine, Raster: raster, OCRLang: "vie+eng"})
	out, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "scan.pdf"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != "ocr page 1" {
		t.Errorf("out = %q, want recognized text", out)
	}
	if raster.calls != 1 || engine.calls != 1 {
		t.Errorf("expected one rasterize and one recognize call, got %d/%d", raster.calls, engine.calls)
	}
	if engine.lang != "vie+eng" {
		t.Errorf("engine saw lang %q, want %q", engine.lang, "vie+eng")
	}
}

func TestExtractPDF_ScannedMultiPage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan2.pdf")
	os.WriteFile(path, buildTextPDF("", ""), 0644) // two pages, no text layer

	engine := &fakeEngine{}
	raster := &fakeRaster{}
	pipe := New(Config{OCR: engine, Raster: raster})
	out, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "scan2.pdf"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "ocr page 1\n\n--- Page Break ---\n\nocr page 2"
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
	if got := raster.pages; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("rasterized pages %v, want [1 2]", got)
	}
}

func TestExtractPDF_OCRNotConfigured(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	os.WriteFile(path, buildImagePDF(), 0644)

	pipe := New(Config{})
	_, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "scan.pdf"})
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if !strings.Contains(err.Error(), "ocr backend not configured") {
		t.Errorf("expected backend message, got %v", err)
	}
}

func TestExtractPDF_BackendFailure(t *testing.T) {
	// No partial text ever escapes a failed run.
	t.Run("rasterizer", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "scan.pdf")
		os.WriteFile(path, buildImagePDF(), 0644)

		raster := &fakeRaster{fail: errors.New("pdftoppm exited 1")}
		pipe := New(Config{OCR: &fakeEngine{}, Raster: raster})
		out, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "scan.pdf"})
		if !errors.Is(err, ErrExtraction) || out != "" {
			t.Fatalf("expected bare ErrExtraction, got %q, %v", out, err)
		}
		if !strings.Contains(err.Error(), "rasterize page 1") {
			t.Errorf("expected page context in error, got %v", err)
		}
	})

	t.Run("engine", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "scan.pdf")
		os.WriteFile(path, buildImagePDF(), 0644)

		engine := &fakeEngine{fail: errors.New("tesseract not found")}
		pipe := New(Config{OCR: engine, Raster: &fakeRaster{}})
		out, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "scan.pdf"})
		if !errors.Is(err, ErrExtraction) || out != "" {
			t.Fatalf("expected bare ErrExtraction, got %q, %v", out, err)
		}
		if !strings.Contains(err.Error(), "ocr page 1") {
			t.Errorf("expected page context in error, got %v", err)
		}
	})
}

func TestExtractPDF_Cancellation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan2.pdf")
	os.WriteFile(path, buildTextPDF("", ""), 0644)

	ctx, cancel := context.WithCancel(context.Background())
	engine := &fakeEngine{onCall: cancel} // cancel while page 1 is in flight
	raster := &fakeRaster{}
	pipe := New(Config{OCR: engine, Raster: raster})

	_, err := pipe.Extract(ctx, Document{Path: path, Filename: "scan2.pdf"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("cancelled extraction must still classify as ErrExtraction, got %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("engine called %d times, want 1 (loop must stop after cancel)", engine.calls)
	}
}

func TestExtractPDF_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	os.WriteFile(path, []byte("%PDF-1.4 this is not a valid pdf body"), 0644)

	pipe := New(Config{})
	_, err := pipe.Extract(context.Background(), Document{Path: path, Filename: "broken.pdf"})
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction for corrupt file, got %v", err)
	}
}

func TestExtract_ConcurrentDocuments(t *testing.T) {
	// WHAT: One Pipeline shared across goroutines handles a mixed
	// docx/scanned-PDF workload without interference (run under -race).
	// WHY: Strategies keep no per-document state; extraction of
	// independent documents must need no locking.
	dir := t.TempDir()
	docxPath := filepath.Join(dir, "doc.docx")
	writeDocx(t, docxPath, docBodyXML)
	scanPath := filepath.Join(dir, "scan.pdf")
	os.WriteFile(scanPath, buildImagePDF(), 0644)

	engine := &fakeEngine{}
	raster := &fakeRaster{}
	pipe := New(Config{OCR: engine, Raster: raster})

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		doc := Document{Path: docxPath, Filename: "doc.docx"}
		want := "Title\n\nBody text"
		if i%2 == 1 {
			doc = Document{Path: scanPath, Filename: "scan.pdf"}
			want = "" // OCR numbering interleaves; success is what matters
		}
		wg.Add(1)
		go func(doc Document, want string) {
			defer wg.Done()
			out, err := pipe.Extract(context.Background(), doc)
			if err != nil {
				errs <- fmt.Errorf("%s: %w", doc.Filename, err)
				return
			}
			if want != "" && out != want {
				errs <- fmt.Errorf("%s: out = %q, want %q", doc.Filename, out, want)
			}
		}(doc, want)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if engine.calls != workers/2 || raster.calls != workers/2 {
		t.Errorf("ocr backend calls = %d recognize / %d rasterize, want %d each",
			engine.calls, raster.calls, workers/2)
	}
}

// --- capability fakes ---

type fakeEngine struct {
	mu     sync.Mutex
	calls  int
	lang   string
	fail   error
	onCall func()
}

func (f *fakeEngine) Recognize(_ context.Context, _ string, lang string) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.lang = lang
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.fail != nil {
		return "", f.fail
	}
	return fmt.Sprintf("ocr page %d", n), nil
}

type fakeRaster struct {
	mu    sync.Mutex
	calls int
	pages []int
	fail  error
}

func (f *fakeRaster) Page(_ context.Context, _ string, page int, dir string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	img := filepath.Join(dir, fmt.Sprintf("page-%02d.png", page))
	if err := os.WriteFile(img, []byte("fake png bytes"), 0644); err != nil {
		return "", err
	}
	return img, nil
}

// --- PDF fixture builders ---

// buildTextPDF builds a valid PDF with correct xref offsets, one page per
// entry. An empty entry produces a page whose content stream shows no text.
func buildTextPDF(pages ...string) []byte {
	n := len(pages)
	fontObj := 3 + 2*n

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, fontObj+1)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, n)
	for i := range pages {
		kids[i] = strconv.Itoa(3+2*i) + " 0 R"
	}
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [" + strings.Join(kids, " ") + "] /Count " + strconv.Itoa(n) + " >>\nendobj\n")

	for i, text := range pages {
		pageObj := 3 + 2*i
		contentObj := 4 + 2*i

		offsets[pageObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>\nendobj\n",
			pageObj, contentObj, fontObj)

		stream := "BT\nET"
		if text != "" {
			stream = "BT\n/F1 12 Tf\n72 720 Td\n(" + escapePDFLiteral(text) + ") Tj\nET"
		}
		offsets[contentObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", contentObj, len(stream), stream)
	}

	offsets[fontObj] = b.Len()
	fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n", fontObj)

	writeXref(&b, offsets)
	return []byte(b.String())
}

// buildImagePDF builds a one-page PDF whose only content is an image
// XObject: a scan-shaped document with no text layer at all.
func buildImagePDF() []byte {
	imgData := "\xff\xd8\xff\xe0"
	drawStream := "q 100 0 0 100 72 692 cm /Im1 Do Q"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << /Im1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")

	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		len(imgData), imgData)

	offsets[5] = b.Len()
	fmt.Fprintf(&b, "5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(drawStream), drawStream)

	writeXref(&b, offsets)
	return []byte(b.String())
}

func writeXref(b *strings.Builder, offsets []int) {
	xrefOffset := b.Len()
	fmt.Fprintf(b, "xref\n0 %d\n", len(offsets))
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xrefOffset)
}

func escapePDFLiteral(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, "(", `\(`)
	return strings.ReplaceAll(text, ")", `\)`)
}
