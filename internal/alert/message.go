package alert

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadMessageFile reads one saved alert message in RFC 822 form and
// decodes its transfer encoding. Alert providers variously send bodies as
// base64, quoted-printable, or plain 7bit/8bit.
func ReadMessageFile(path string) (Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return Message{}, fmt.Errorf("opening alert message: %w", err)
	}
	defer f.Close()

	m, err := mail.ReadMessage(f)
	if err != nil {
		return Message{}, fmt.Errorf("parsing alert message %s: %w", filepath.Base(path), err)
	}

	var body io.Reader = m.Body
	switch enc := strings.ToLower(m.Header.Get("Content-Transfer-Encoding")); enc {
	case "base64":
		// the base64 decoder skips the CRLFs mail transports wrap with
		body = base64.NewDecoder(base64.StdEncoding, m.Body)
	case "quoted-printable", "binary":
		// NCBI labels quoted-printable bodies "binary".
		body = quotedprintable.NewReader(m.Body)
	case "", "7bit", "8bit":
	default:
		return Message{}, fmt.Errorf("alert message %s: unrecognized Content-Transfer-Encoding %q",
			filepath.Base(path), enc)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return Message{}, fmt.Errorf("decoding alert message %s: %w", filepath.Base(path), err)
	}
	return Message{
		Sender:  m.Header.Get("From"),
		Subject: m.Header.Get("Subject"),
		Body:    string(raw),
	}, nil
}

// LoadMessageDir reads every .eml file in dir, in name order so runs are
// deterministic.
func LoadMessageDir(dir string) ([]Message, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	if err != nil {
		return nil, fmt.Errorf("listing alert messages: %w", err)
	}
	sort.Strings(paths)

	msgs := make([]Message, 0, len(paths))
	for _, p := range paths {
		msg, err := ReadMessageFile(p)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
