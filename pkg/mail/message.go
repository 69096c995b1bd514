package mail

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// Message is an outbound email. HTMLBody is optional; when set the message is sent as
// multipart/alternative with Body as the plain-text part.
type Message struct {
	From     string
	ReplyTo  string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// recipients returns the trimmed To list with case-insensitive duplicates removed.
func (m Message) recipients() []string {
	seen := make(map[string]struct{}, len(m.To))
	out := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// render produces the RFC 5322 payload written after DATA.
func (m Message) render(sender *mail.Address, to []string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	header := func(key, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", key, value)
	}
	header("From", sender.String())
	header("To", strings.Join(to, ", "))
	if reply := strings.TrimSpace(m.ReplyTo); reply != "" {
		addr, err := mail.ParseAddress(reply)
		if err != nil {
			return nil, fmt.Errorf("smtp: invalid reply-to address: %w", err)
		}
		header("Reply-To", addr.String())
	}
	header("Subject", mime.QEncoding.Encode("utf-8", singleLine(m.Subject)))
	header("Date", now.UTC().Format(time.RFC1123Z))
	header("Message-ID", messageID(sender.Address))
	header("MIME-Version", "1.0")

	if m.HTMLBody == "" {
		header("Content-Type", "text/plain; charset=UTF-8")
		header("Content-Transfer-Encoding", "8bit")
		buf.WriteString("\r\n")
		buf.WriteString(m.Body)
		return buf.Bytes(), nil
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)
	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", m.Body},
		{"text/html; charset=UTF-8", m.HTMLBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	header("Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": mw.Boundary()}))
	buf.WriteString("\r\n")
	buf.Write(parts.Bytes())
	return buf.Bytes(), nil
}

func singleLine(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	var raw [12]byte
	_, _ = rand.Read(raw[:])
	return "<" + hex.EncodeToString(raw[:]) + "@" + domain + ">"
}
