package workflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	exif "github.com/barasher/go-exiftool"
	"github.com/mproffitt/folden/pkg/mime"
	log "github.com/sirupsen/logrus"
)

func pcopy(source, dest string) (err error) {
	var (
		r  *os.File
		w  *os.File
		fi os.FileInfo
	)
	if r, err = os.Open(source); err != nil {
		return
	}
	defer r.Close() // ok to ignore error: file was opened read-only.

	if fi, err = r.Stat(); err != nil {
		return
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", source)
	}

	if w, err = os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm()); err != nil {
		return
	}

	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(w, r)
	return
}

func samePath(a, b string) bool {
	a, _ = filepath.Abs(a)
	b, _ = filepath.Abs(b)
	return a == b
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// format replaces placeholders in a template. Values are passed as
// placeholder/value pairs.
func format(format string, args ...string) string {
	r := strings.NewReplacer(args...)
	return r.Replace(format)
}

// dateDirectory the YYYY-MM-DD directory name for the file at path.
//
// Defaults to the modification time. Images use their EXIF CreateDate when
// exiftool is available.
func dateDirectory(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	var date string = fi.ModTime().Format("2006-01-02")

	if details, err := mime.Detect(path); err == nil && details.Catagory == "image" {
		if info, err := exifData(path); err == nil {
			if v, ok := info["CreateDate"].(string); ok {
				// dont change date until we're sure we have something valid
				for _, layout := range []string{"2006:01:02 15:04:05-07:00", "2006:01:02 15:04:05"} {
					if t, err := time.Parse(layout, v); err == nil {
						date = t.Format("2006-01-02")
						break
					}
				}
			}
		} else {
			log.Debugf("No exif data for %s - %s", path, err.Error())
		}
	}
	return date, nil
}

func exifData(path string) (map[string]interface{}, error) {
	et, err := exif.NewExiftool()
	if err != nil {
		return nil, err
	}
	defer et.Close()

	fi := et.ExtractMetadata(path)[0]
	if fi.Err != nil {
		return nil, fi.Err
	}

	return fi.Fields, nil
}
