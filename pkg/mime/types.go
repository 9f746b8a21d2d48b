package mime

// Partial Mime type given to files which are still being downloaded
const Partial string = "application/x-partial-download"

// Executable Filter keyword matching every executable type
const Executable string = "executable"

// executableTypes Mime types of programs and scripts
var executableTypes = []string{
	"application/x-executable",
	"application/x-mach-binary",
	"application/vnd.microsoft.portable-executable",
	"text/x-python",
	"text/x-perl",
}

// partialExtensions File extensions browsers and download managers use while a transfer is in flight
var partialExtensions = []string{
	".part",
	".crdownload",
	".download",
	".partial",
}

// Details Contains basic information about the type
type Details struct {
	Catagory  string   `json:"category"`
	Type      string   `json:"type"`
	SubClass  []string `json:"subclass"`
	Extension string   `json:"extension"`
}
