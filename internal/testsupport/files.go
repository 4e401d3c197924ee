package testsupport

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// ZipEntry is one file written by WriteZip. Names use forward slashes and
// are stored verbatim, so callers can build hostile archives too.
type ZipEntry struct {
	Name string
	Body string
}

// WriteZip builds a zip archive at path with the entries in order.
func WriteZip(t testing.TB, path string, entries ...ZipEntry) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		w, err := zw.Create(entry.Name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", entry.Name, err)
		}
		if _, err := w.Write([]byte(entry.Body)); err != nil {
			t.Fatalf("zip write %s: %v", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip %s: %v", path, err)
	}
}

// CVATImage describes one <image> element for CVATDocument.
type CVATImage struct {
	Name  string
	Boxes int
	Tags  []string
}

// CVATDocument renders a minimal CVAT for images 1.1 annotation document.
func CVATDocument(images ...CVATImage) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<annotations>\n  <version>1.1</version>\n")
	for i, img := range images {
		fmt.Fprintf(&b, "  <image id=\"%d\"", i)
		if img.Name != "" {
			fmt.Fprintf(&b, " name=%q", img.Name)
		}
		b.WriteString(" width=\"640\" height=\"480\">\n")
		for range img.Boxes {
			b.WriteString("    <box label=\"ad\" occluded=\"0\" xtl=\"1\" ytl=\"1\" xbr=\"10\" ybr=\"10\"></box>\n")
		}
		for _, tag := range img.Tags {
			fmt.Fprintf(&b, "    <tag label=%q source=\"manual\"></tag>\n", tag)
		}
		b.WriteString("  </image>\n")
	}
	b.WriteString("</annotations>\n")
	return b.String()
}
