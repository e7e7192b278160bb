package export

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DisplayQR writes a PNG QR code for a display window URL so a device on
// the stage can open it.
func DisplayQR(url, path string, size int) error {
	if url == "" {
		return fmt.Errorf("empty url")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.WriteFile(url, qrcode.Medium, size, path)
}
