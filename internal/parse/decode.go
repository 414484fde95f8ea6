package parse

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// DecodeText converts a pasted log blob to UTF-8. Operators in
// Cyrillic-locale chat clients occasionally paste windows-1251 bytes;
// everything else arrives as UTF-8.
func DecodeText(raw []byte, encoding string) (string, error) {
	switch encoding {
	case "", "utf-8":
		return string(raw), nil
	case "windows-1251":
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decode windows-1251: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
