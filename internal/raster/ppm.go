// Package raster parses the binary outputs of the external RF-coverage
// tool (a PPM-P6 colour raster and a DCF colour-to-dBm table) into a dBm
// coverage matrix, and converts that matrix into a geo-coordinate point
// list. None of this has a library equivalent anywhere in the retrieved
// example pack, so it is hand-rolled byte parsing in the style of the
// platform's other low-level binary readers.
package raster

import (
	"bufio"
	"fmt"
	"io"
)

// PPMImage holds a decoded PPM-P6 raster: cols*rows pixels, 3 bytes each.
type PPMImage struct {
	Cols, Rows, MaxVal int
	Pixels             []byte // len == Cols*Rows*3
}

// ParsePPM decodes a PPM-P6 binary raster per spec §6.4: magic "P6",
// `#`-prefixed comments skipped, whitespace-separated cols/rows/maxval
// header, then exactly cols*rows*3 raw bytes.
func ParsePPM(r io.Reader) (*PPMImage, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("reading PPM magic: %w", err)
	}
	if magic != "P6" {
		return nil, fmt.Errorf("unsupported PPM magic %q, want P6", magic)
	}

	cols, err := readIntToken(br)
	if err != nil {
		return nil, fmt.Errorf("reading PPM width: %w", err)
	}
	rows, err := readIntToken(br)
	if err != nil {
		return nil, fmt.Errorf("reading PPM height: %w", err)
	}
	maxVal, err := readIntToken(br)
	if err != nil {
		return nil, fmt.Errorf("reading PPM maxval: %w", err)
	}

	// A single whitespace byte separates the header from the raw pixel
	// data; readIntToken already consumed the delimiter that followed
	// maxVal's digits, so the reader is positioned at the first pixel byte.

	want := cols * rows * 3
	pixels := make([]byte, want)
	if _, err := io.ReadFull(br, pixels); err != nil {
		return nil, fmt.Errorf("reading PPM pixel data (want %d bytes): %w", want, err)
	}

	return &PPMImage{Cols: cols, Rows: rows, MaxVal: maxVal, Pixels: pixels}, nil
}

// At returns the (r, g, b) pixel at (row, col).
func (p *PPMImage) At(row, col int) (r, g, b byte) {
	idx := (row*p.Cols + col) * 3
	return p.Pixels[idx], p.Pixels[idx+1], p.Pixels[idx+2]
}

func readToken(br *bufio.Reader) (string, error) {
	if err := skipWhitespaceAndComments(br); err != nil {
		return "", err
	}
	var buf []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return string(buf), nil
			}
			return "", err
		}
		if isSpace(b) {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

func readIntToken(br *bufio.Reader) (int, error) {
	tok, err := readToken(br)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range []byte(tok) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid integer token %q", tok)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func skipWhitespaceAndComments(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b == '#':
			if err := skipLine(br); err != nil {
				return err
			}
		case isSpace(b):
			continue
		default:
			return br.UnreadByte()
		}
	}
}

func skipLine(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		if b == '\n' {
			return nil
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
