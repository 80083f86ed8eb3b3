package tar

// decodeLongName returns the text of a GNU long-name or long-link payload.
// A single trailing NUL is stripped; any other bytes are kept as is.
func decodeLongName(payload []byte) string {
	if n := len(payload); n > 0 && payload[n-1] == 0 {
		payload = payload[:n-1]
	}
	return string(payload)
}

// longNameEntry returns the continuation header and payload that carry
// text ahead of the real header. t is TypeGNULongName or TypeGNULongLink.
func longNameEntry(t TypeFlag, text string) (*Header, []byte) {
	payload := make([]byte, len(text)+1)
	copy(payload, text)
	return &Header{
		Path:    longLinkName,
		Type:    t,
		Size:    int64(len(payload)),
		Dialect: DialectGNU,
	}, payload
}
