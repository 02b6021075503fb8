package tokenstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const (
	pairFormatVersionCurrent = 2
	pairFormatVersionV1      = 1
)

// Encode serializes p in the current binary format.
//
// Layout (v2): version byte, u16-prefixed access and refresh tokens, u8-prefixed token type
// and subject, then access expiry, refresh expiry and issued-at as big-endian unix millis.
func Encode(p Pair) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(pairFormatVersionCurrent)

	if err := writeString16(&buf, p.AccessToken); err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	if err := writeString16(&buf, p.RefreshToken); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if err := writeString8(&buf, p.TokenType); err != nil {
		return nil, fmt.Errorf("token type: %w", err)
	}
	if err := writeString8(&buf, p.Subject); err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}

	for _, ts := range []time.Time{p.AccessExpiresAt, p.RefreshExpiresAt, p.IssuedAt} {
		if err := binary.Write(&buf, binary.BigEndian, unixMilli(ts)); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses any supported format version. Failures wrap [ErrCorrupt].
func Decode(data []byte) (Pair, error) {
	p, err := decode(data)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := p.Validate(); err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return p, nil
}

func decode(data []byte) (Pair, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Pair{}, err
	}
	if version != pairFormatVersionCurrent && version != pairFormatVersionV1 {
		return Pair{}, errors.New("invalid pair version")
	}

	var p Pair
	if p.AccessToken, err = readString16(reader); err != nil {
		return Pair{}, err
	}
	if p.RefreshToken, err = readString16(reader); err != nil {
		return Pair{}, err
	}

	if version == pairFormatVersionCurrent {
		if p.TokenType, err = readString8(reader); err != nil {
			return Pair{}, err
		}
		if p.Subject, err = readString8(reader); err != nil {
			return Pair{}, err
		}
	} else {
		p.TokenType = DefaultTokenType
	}

	var accessExp, refreshExp int64
	if err := binary.Read(reader, binary.BigEndian, &accessExp); err != nil {
		return Pair{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &refreshExp); err != nil {
		return Pair{}, err
	}
	p.AccessExpiresAt = fromUnixMilli(accessExp)
	p.RefreshExpiresAt = fromUnixMilli(refreshExp)

	if version == pairFormatVersionCurrent {
		var issued int64
		if err := binary.Read(reader, binary.BigEndian, &issued); err != nil {
			return Pair{}, err
		}
		p.IssuedAt = fromUnixMilli(issued)
	}

	if reader.Len() != 0 {
		return Pair{}, errors.New("trailing bytes")
	}

	return p, nil
}

// encodeV1 writes the legacy layout. Kept for migration tests.
func encodeV1(p Pair) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(pairFormatVersionV1)
	if err := writeString16(&buf, p.AccessToken); err != nil {
		return nil, err
	}
	if err := writeString16(&buf, p.RefreshToken); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, unixMilli(p.AccessExpiresAt)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, unixMilli(p.RefreshExpiresAt)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errors.New("value too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func writeString8(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint8 {
		return errors.New("value too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}

func readString8(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
