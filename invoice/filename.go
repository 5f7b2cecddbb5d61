package invoice

import (
	"strconv"
	"strings"
	"time"
)

// Filename returns the download name for an exported invoice. The invoice
// number is used when present, otherwise the unix millisecond timestamp.
func Filename(inv Invoice, now time.Time) string {
	token := sanitizeFilenameToken(inv.InvoiceNumber)
	if token == "" {
		token = strconv.FormatInt(now.UnixMilli(), 10)
	}
	return "invoice_" + token + ".pdf"
}

func sanitizeFilenameToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, value)
}
