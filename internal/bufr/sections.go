package bufr

import (
	"encoding/binary"
	"fmt"
)

// Message is the parsed section structure of one BUFR message: the
// subset count, the descriptor list exactly as section 3 carries it
// (Table-D sequences not yet expanded), and the raw bit-packed section-4 payload a DataReader
// walks per subset.
type Message struct {
	NumSubsets  int
	Compressed  bool
	Descriptors []FXY
	Data        []byte
}

func be24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// ParseMessage reads BUFR sections 0 through 5 out of one complete
// message (indicator through "7777"). Only edition 3/4, uncompressed
// messages are supported — compression is not needed by the synoptic
// descriptors this decoder serves, and DWD's synop BUFR feed does not
// use it.
func ParseMessage(raw []byte) (*Message, error) {
	if len(raw) < 8 || string(raw[:4]) != "BUFR" {
		return nil, fmt.Errorf("bufr: missing section-0 indicator")
	}
	edition := raw[7]
	pos := 8

	if pos+3 > len(raw) {
		return nil, fmt.Errorf("bufr: truncated section 1")
	}
	sec1Len := be24(raw[pos : pos+3])
	if pos+sec1Len > len(raw) {
		return nil, fmt.Errorf("bufr: truncated section 1 body")
	}
	sec1 := raw[pos : pos+sec1Len]

	var optionalFlagOffset int
	switch {
	case edition >= 4:
		optionalFlagOffset = 10
	default:
		optionalFlagOffset = 7
	}
	hasOptional := false
	if optionalFlagOffset < len(sec1) {
		hasOptional = sec1[optionalFlagOffset]&0x80 != 0
	}
	pos += sec1Len

	if hasOptional {
		if pos+3 > len(raw) {
			return nil, fmt.Errorf("bufr: truncated section 2 length")
		}
		sec2Len := be24(raw[pos : pos+3])
		pos += sec2Len
	}

	if pos+3 > len(raw) {
		return nil, fmt.Errorf("bufr: truncated section 3 length")
	}
	sec3Len := be24(raw[pos : pos+3])
	if pos+sec3Len > len(raw) || sec3Len < 7 {
		return nil, fmt.Errorf("bufr: truncated section 3 body")
	}
	sec3 := raw[pos : pos+sec3Len]
	numSubsets := int(binary.BigEndian.Uint16(sec3[4:6]))
	flags3 := sec3[6]
	compressed := flags3&0x40 != 0
	descBytes := sec3[7:sec3Len]
	descriptors := make([]FXY, 0, len(descBytes)/2)
	for i := 0; i+1 < len(descBytes); i += 2 {
		descriptors = append(descriptors, ParseFXY(binary.BigEndian.Uint16(descBytes[i:i+2])))
	}
	pos += sec3Len

	if pos+3 > len(raw) {
		return nil, fmt.Errorf("bufr: truncated section 4 length")
	}
	sec4Len := be24(raw[pos : pos+3])
	if pos+sec4Len > len(raw) || sec4Len < 4 {
		return nil, fmt.Errorf("bufr: truncated section 4 body")
	}
	sec4 := raw[pos : pos+sec4Len]
	data := sec4[4:sec4Len]

	if compressed {
		return nil, fmt.Errorf("bufr: compressed data section not supported")
	}

	return &Message{
		NumSubsets:  numSubsets,
		Compressed:  compressed,
		Descriptors: descriptors,
		Data:        data,
	}, nil
}
