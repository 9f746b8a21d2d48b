package mime

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

// Detect Find the mime details for the file at path by inspecting its content
//
// Arguments:
//
// - path string The full path of the file to inspect
//
// Return:
//
// - *Details The mime information for the file
// - error    Any error raised while reading the file
func Detect(path string) (*Details, error) {
	if isPartialExtension(path) {
		return &Details{
			Catagory:  catagoryOf(Partial),
			Type:      Partial,
			SubClass:  make([]string, 0),
			Extension: filepath.Ext(path),
		}, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, err
	}
	details := fromMIME(mtype)
	log.Tracef("Detected %s as %s", path, details.Type)
	return details, nil
}

// DetectBytes Find the mime details for an in-memory buffer
func DetectBytes(data []byte) *Details {
	return fromMIME(mimetype.Detect(data))
}

func fromMIME(mtype *mimetype.MIME) *Details {
	details := &Details{
		Type:      baseType(mtype.String()),
		Extension: mtype.Extension(),
		SubClass:  make([]string, 0),
	}
	details.Catagory = catagoryOf(details.Type)
	for parent := mtype.Parent(); parent != nil; parent = parent.Parent() {
		details.SubClass = append(details.SubClass, baseType(parent.String()))
	}
	return details
}

// baseType strips parameters such as "; charset=utf-8"
func baseType(t string) string {
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}

func catagoryOf(t string) string {
	if i := strings.Index(t, "/"); i >= 0 {
		return t[:i]
	}
	return t
}

func isPartialExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, p := range partialExtensions {
		if ext == p {
			return true
		}
	}
	return false
}
