package gts

import (
	"bytes"
	"fmt"
	"io"
	"testing"
)

func build31ByteHeader(seqNo int, productID, source string, day, hour, minute int) []byte {
	var b bytes.Buffer
	b.Write(sohCRCRLF)
	fmt.Fprintf(&b, "%03d", seqNo)
	b.Write(crcrlf)
	b.WriteString(productID)
	b.WriteByte(' ')
	b.WriteString(source)
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%02d%02d%02d", day, hour, minute)
	b.Write(crcrlf)
	return b.Bytes()
}

func TestParseHeader(t *testing.T) {
	hdr := build31ByteHeader(1, "IUSZ41", "EDZW", 15, 12, 30)
	h, err := ParseHeader(hdr[:28])
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.SeqNo != 1 || h.ProductID != "IUSZ41" || h.Source != "EDZW" {
		t.Errorf("header = %+v, want SeqNo=1 ProductID=IUSZ41 Source=EDZW", h)
	}
	if h.Day != 15 || h.Hour != 12 || h.Minute != 30 {
		t.Errorf("header time = %d/%d/%d, want 15/12/30", h.Day, h.Hour, h.Minute)
	}
}

func TestParseHeaderRejectsBadStart(t *testing.T) {
	hdr := build31ByteHeader(1, "IUSZ41", "EDZW", 15, 12, 30)
	hdr[0] = 'X'
	if _, err := ParseHeader(hdr[:28]); err == nil {
		t.Errorf("ParseHeader: want error for invalid start of message")
	}
}

func buildBulletin(seqNo int, payload []byte) []byte {
	header := build31ByteHeader(seqNo, "IUSZ41", "EDZW", 15, 12, 0)
	trailerBytes := []byte("7777\r\r\n\x03")
	length := len(header) + len(payload) + len(trailerBytes)

	var b bytes.Buffer
	fmt.Fprintf(&b, "%08d", length)
	b.Write([]byte{'\r', '\r'}) // 2-byte filler, unchecked by Next
	b.Write(header)
	b.Write(payload)
	b.Write(trailerBytes)
	return b.Bytes()
}

func buildNilBulletin(seqNo int) []byte {
	header := build31ByteHeader(seqNo, "IUSZ41", "EDZW", 15, 12, 0)
	length := len(header) + 7

	var b bytes.Buffer
	fmt.Fprintf(&b, "%08d", length)
	b.Write([]byte{'\r', '\r'})
	b.Write(header)
	b.Write(nilTrailer)
	return b.Bytes()
}

func TestReaderNextReadsPayloadBulletin(t *testing.T) {
	payload := []byte("BUFRPAYLOADBYTES")
	stream := buildBulletin(7, payload)
	r := NewReader(bytes.NewReader(stream))

	msg, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if msg.IsNil {
		t.Fatalf("IsNil = true, want false")
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Errorf("Payload = %q, want %q", msg.Payload, payload)
	}
	if msg.Header.SeqNo != 7 {
		t.Errorf("SeqNo = %d, want 7", msg.Header.SeqNo)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("second Next() err = %v, want io.EOF", err)
	}
}

func TestReaderNextHandlesNilBulletin(t *testing.T) {
	stream := buildNilBulletin(3)
	r := NewReader(bytes.NewReader(stream))

	msg, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !msg.IsNil {
		t.Errorf("IsNil = false, want true")
	}
	if len(msg.Payload) != 0 {
		t.Errorf("Payload = %q, want empty for NIL bulletin", msg.Payload)
	}
}

func TestReaderNextStopsOnMultipleBulletins(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildBulletin(1, []byte("FIRST")))
	stream.Write(buildBulletin(2, []byte("SECONDPAYLOAD")))
	r := NewReader(&stream)

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if string(first.Payload) != "FIRST" {
		t.Errorf("first.Payload = %q, want FIRST", first.Payload)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if string(second.Payload) != "SECONDPAYLOAD" {
		t.Errorf("second.Payload = %q, want SECONDPAYLOAD", second.Payload)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("third Next() err = %v, want io.EOF", err)
	}
}
