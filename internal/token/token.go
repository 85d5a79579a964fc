// Package token implements the shareable exam encoding: an exam is
// serialized to JSON, zlib-compressed, and base64url-encoded so it can
// round-trip through a URL query parameter. Decoding keeps a fallback path
// for legacy links that carried plain base64 JSON without compression.
package token

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/studyforge/examgen/internal/model"
)

// ErrInvalid is returned when a token cannot be decoded into an exam by
// either the compressed or the legacy path.
var ErrInvalid = errors.New("invalid exam token")

// Encode serializes an exam into a URL-safe token.
func Encode(exam *model.Exam) (string, error) {
	raw, err := json.Marshal(exam)
	if err != nil {
		return "", fmt.Errorf("marshal exam: %w", err)
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress exam: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress exam: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a token back into an exam. It accepts percent-encoded
// input (tokens pasted straight from a URL), tries the compressed encoding
// first, then the legacy uncompressed one. The token is valid only when
// the decoded JSON yields at least one question section.
func Decode(s string) (*model.Exam, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalid
	}
	if strings.Contains(s, "%") {
		if unescaped, err := url.QueryUnescape(s); err == nil {
			s = unescaped
		}
	}

	if raw, err := inflate(s); err == nil {
		if exam, err := parse(raw); err == nil {
			return exam, nil
		}
	}

	// Fallback for old links: plain base64 of the exam JSON.
	if raw, err := decodeBase64(s); err == nil {
		if exam, err := parse(raw); err == nil {
			return exam, nil
		}
	}

	return nil, ErrInvalid
}

func inflate(s string) ([]byte, error) {
	data, err := decodeBase64(s)
	if err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return raw, nil
}

// decodeBase64 accepts both the URL-safe and standard alphabets, padded or
// not: the legacy encoder emitted padded URL-safe output while the legacy
// fallback links used the standard alphabet.
func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func parse(raw []byte) (*model.Exam, error) {
	var exam model.Exam
	if err := json.Unmarshal(raw, &exam); err != nil {
		return nil, err
	}
	if exam.Empty() {
		return nil, ErrInvalid
	}
	exam.Normalize()
	return &exam, nil
}
