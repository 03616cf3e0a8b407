package files

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
)

// OpenViewer hands a URL to the host's viewer: $BROWSER when set, otherwise
// the platform opener.
func OpenViewer(url string) error {
	if browser := os.Getenv("BROWSER"); browser != "" {
		return exec.Command(browser, url).Start()
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err == nil {
			return exec.Command("xdg-open", url).Start()
		}
	}
	return errors.New("files: no viewer available")
}
