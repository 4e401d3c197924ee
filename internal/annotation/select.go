package annotation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultEmptyTag is the tag label annotators use for images confirmed to
// contain no target objects.
const DefaultEmptyTag = "brak reklam"

// ErrMalformed marks documents that are not well-formed annotation markup.
var ErrMalformed = errors.New("malformed annotation document")

// Options tunes the inclusion predicate.
type Options struct {
	// EmptyTag overrides DefaultEmptyTag when non-empty.
	EmptyTag string
}

func (o Options) emptyTag() string {
	if tag := strings.TrimSpace(o.EmptyTag); tag != "" {
		return tag
	}
	return DefaultEmptyTag
}

// Warning describes an image record that was skipped without failing the document.
type Warning struct {
	// Index is the 1-based position of the record within the document.
	Index   int
	Message string
}

// Result holds the outcome of selecting from one document. Images preserves
// document order and is not deduplicated.
type Result struct {
	Images   []string
	Total    int
	Boxed    int
	Empty    int
	Warnings []Warning
}

type imageRecord struct {
	Name  string     `xml:"name,attr"`
	Boxes []boxShape `xml:"box"`
	Tags  []imageTag `xml:"tag"`
}

type boxShape struct {
	Label string `xml:"label,attr"`
}

type imageTag struct {
	Label string `xml:"label,attr"`
}

// Select scans one annotation document and returns the names of images that
// have at least one box child or a tag labeled with the empty-image sentinel.
func Select(r io.Reader, opts Options) (Result, error) {
	emptyTag := opts.emptyTag()
	decoder := xml.NewDecoder(r)

	var result Result
	sawRoot := false
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			sawRoot = true
			continue
		}
		if start.Name.Local != "image" {
			continue
		}

		var record imageRecord
		if err := decoder.DecodeElement(&record, &start); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		result.Total++

		name := record.Name
		if name == "" {
			result.Warnings = append(result.Warnings, Warning{
				Index:   result.Total,
				Message: "image element has no name attribute",
			})
			continue
		}

		hasBoxes := len(record.Boxes) > 0
		if hasBoxes {
			result.Boxed++
		}
		confirmedEmpty := false
		for _, tag := range record.Tags {
			if tag.Label == emptyTag {
				confirmedEmpty = true
				break
			}
		}
		if confirmedEmpty && !hasBoxes {
			result.Empty++
		}
		if hasBoxes || confirmedEmpty {
			result.Images = append(result.Images, name)
		}
	}
	if !sawRoot {
		return Result{}, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return result, nil
}

// SelectFile opens path and runs Select over its contents.
func SelectFile(path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Select(f, opts)
}
