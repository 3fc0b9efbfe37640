// Package gts parses the WMO Global Telecommunication System envelope
// that wraps BUFR (and other) bulletins: an 8-digit ASCII length
// prefix, a fixed-offset header, and a fixed trailer. Modeled on
// de-bkg-gognss's header-parsing scanner style (a struct around an
// io.Reader exposing one frame per call) rather than a single
// monolithic parse function.
package gts

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Header is the parsed fixed-offset fields of one GTS bulletin header:
// <SOH><CR><CR><LF>nnn<CR><CR><LF>T1T2A1A2ii SP cccc SP YYGGgg<CR><CR><LF>
type Header struct {
	SeqNo     uint16
	ProductID string // T1T2A1A2ii, 6 chars
	Source    string // cccc, 4 chars
	Day       uint8
	Hour      uint8
	Minute    uint8
}

var (
	sohCRCRLF = []byte("\x01\r\r\n")
	crcrlf    = []byte("\r\r\n")
)

// ParseHeader reads the fixed fields out of a 28-byte-or-more buffer.
// Only the first 28 bytes carry header fields (sequence number, product
// id, source, day/hour/minute); bytes beyond that up to the trailing
// <CR><CR><LF> are an unparsed variant-specific extension.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < 28 {
		return Header{}, fmt.Errorf("gts: header too short: %d bytes", len(b))
	}
	if !bytes.Equal(b[:4], sohCRCRLF) {
		return Header{}, fmt.Errorf("gts: invalid start of message")
	}
	seqNo, err := strconv.ParseUint(string(b[4:7]), 10, 16)
	if err != nil {
		return Header{}, fmt.Errorf("gts: invalid seq no: %w", err)
	}
	if !bytes.Equal(b[7:10], crcrlf) {
		return Header{}, fmt.Errorf("gts: expected crcrlf after seq no")
	}
	productID := string(b[10:16])
	if b[16] != ' ' {
		return Header{}, fmt.Errorf("gts: expected space after product id")
	}
	source := string(b[17:21])
	if b[21] != ' ' {
		return Header{}, fmt.Errorf("gts: expected space after source")
	}
	day, err := strconv.ParseUint(string(b[22:24]), 10, 8)
	if err != nil {
		return Header{}, fmt.Errorf("gts: invalid day: %w", err)
	}
	hour, err := strconv.ParseUint(string(b[24:26]), 10, 8)
	if err != nil {
		return Header{}, fmt.Errorf("gts: invalid hour: %w", err)
	}
	minute, err := strconv.ParseUint(string(b[26:28]), 10, 8)
	if err != nil {
		return Header{}, fmt.Errorf("gts: invalid minute: %w", err)
	}

	return Header{
		SeqNo:     uint16(seqNo),
		ProductID: productID,
		Source:    source,
		Day:       uint8(day),
		Hour:      uint8(hour),
		Minute:    uint8(minute),
	}, nil
}

// Message is one decoded GTS bulletin: its header and BUFR (or other)
// payload bytes, with the trailing 7777<CR><CR><LF><ETX> stripped. A
// NIL bulletin carries no payload.
type Message struct {
	Header  Header
	Payload []byte
	IsNil   bool
}

var (
	nilTrailer = []byte("NIL\r\r\n\x03")
	trailer    = []byte("7777\r\r\n\x03")
)

// Reader iterates length-prefixed GTS bulletins out of a concatenated
// byte stream, as delivered by the synoptic BUFR upstream.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for bulletin-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next bulletin, or io.EOF once the stream is
// exhausted (either a genuine EOF, or a zero/unparsable length prefix,
// which the upstream uses to mark the end of the file — matching the
// original reader, which stops rather than erroring in that case).
func (g *Reader) Next() (*Message, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(g.r, lenBuf[:]); err != nil {
		return nil, io.EOF
	}
	length, err := strconv.ParseUint(string(lenBuf[:]), 10, 64)
	if err != nil || length == 0 {
		return nil, io.EOF
	}

	var filler [2]byte
	if _, err := io.ReadFull(g.r, filler[:]); err != nil {
		return nil, fmt.Errorf("gts: read filler: %w", err)
	}

	bounded := io.LimitReader(g.r, int64(length))

	var hdr [35]byte
	if _, err := io.ReadFull(bounded, hdr[:31]); err != nil {
		return nil, fmt.Errorf("gts: read header: %w", err)
	}
	headerLen := 31
	if !bytes.Equal(hdr[28:31], crcrlf) {
		if _, err := io.ReadFull(bounded, hdr[31:35]); err != nil {
			return nil, fmt.Errorf("gts: read extended header: %w", err)
		}
		if !bytes.Equal(hdr[32:35], crcrlf) {
			return nil, fmt.Errorf("gts: invalid GTS header end")
		}
		headerLen = 35
	}

	header, err := ParseHeader(hdr[:28])
	if err != nil {
		return nil, err
	}

	if length == 31+7 {
		var nilEnd [7]byte
		if _, err := io.ReadFull(bounded, nilEnd[:]); err != nil {
			return nil, fmt.Errorf("gts: read nil trailer: %w", err)
		}
		if !bytes.Equal(nilEnd[:], nilTrailer) {
			return nil, fmt.Errorf("gts: invalid nil message")
		}
		return &Message{Header: header, IsNil: true}, nil
	}

	remaining := int64(length) - int64(headerLen) - 8
	if remaining < 0 {
		return nil, fmt.Errorf("gts: bulletin shorter than header+trailer")
	}
	payload := make([]byte, remaining)
	if _, err := io.ReadFull(bounded, payload); err != nil {
		return nil, fmt.Errorf("gts: read payload: %w", err)
	}

	var foot [8]byte
	if _, err := io.ReadFull(bounded, foot[:]); err != nil {
		return nil, fmt.Errorf("gts: read trailer: %w", err)
	}
	if !bytes.Equal(foot[:], trailer) {
		return nil, fmt.Errorf("gts: invalid BUFR/GTS trailer")
	}

	return &Message{Header: header, Payload: payload}, nil
}
