package telemetry

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func encodeRecord(t *testing.T, secret [SecretLen]byte, state [StateLen]byte, temp, iaq, co2 float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(secret[:])
	buf.Write(state[:])
	var f [4]byte
	binary.LittleEndian.PutUint32(f[:], math.Float32bits(temp))
	buf.Write(f[:])
	binary.LittleEndian.PutUint32(f[:], math.Float32bits(iaq))
	buf.Write(f[:])
	binary.LittleEndian.PutUint32(f[:], math.Float32bits(co2))
	buf.Write(f[:])
	return buf.Bytes()
}

func TestDecodeRecordRoundTrip(t *testing.T) {
	var secret [SecretLen]byte
	secret[0] = 0xAB
	var state [StateLen]byte
	state[10] = 0xCD

	raw := encodeRecord(t, secret, state, 21.5, 123.4, 456.7)
	rec, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if rec.Secret != secret {
		t.Errorf("Secret mismatch")
	}
	if rec.State != state {
		t.Errorf("State mismatch")
	}
	if rec.Temperature != 21.5 || rec.IAQ != 123.4 || rec.CO2 != 456.7 {
		t.Errorf("scalar fields = %v/%v/%v, want 21.5/123.4/456.7", rec.Temperature, rec.IAQ, rec.CO2)
	}
}

func TestDecodeRecordRejectsWrongLength(t *testing.T) {
	if _, err := DecodeRecord([]byte("too short")); err == nil {
		t.Errorf("DecodeRecord: want error for wrong-length input")
	}
}

func TestSecretMatches(t *testing.T) {
	var a, b [SecretLen]byte
	a[5] = 1
	b[5] = 1
	if !SecretMatches(a, b) {
		t.Errorf("SecretMatches: want true for identical secrets")
	}
	b[5] = 2
	if SecretMatches(a, b) {
		t.Errorf("SecretMatches: want false for differing secrets")
	}
}

func TestBearerMatches(t *testing.T) {
	if !BearerMatches("sekret", "sekret") {
		t.Errorf("BearerMatches: want true for identical tokens")
	}
	if BearerMatches("sekret", "other") {
		t.Errorf("BearerMatches: want false for differing tokens")
	}
}

func TestHistoryRingBufferEviction(t *testing.T) {
	h := NewHistory()
	for i := 0; i < HistoryCapacity+10; i++ {
		h.Push(DataItem{TimestampMS: int64(i)})
	}
	snap := h.Snapshot()
	if len(snap) != HistoryCapacity {
		t.Fatalf("len(snap) = %d, want %d", len(snap), HistoryCapacity)
	}
	if snap[0].TimestampMS != 10 {
		t.Errorf("oldest surviving item TimestampMS = %d, want 10 (first 10 evicted)", snap[0].TimestampMS)
	}
	if snap[len(snap)-1].TimestampMS != int64(HistoryCapacity+9) {
		t.Errorf("newest item TimestampMS = %d, want %d", snap[len(snap)-1].TimestampMS, HistoryCapacity+9)
	}
}

func TestHistorySnapshotBeforeFull(t *testing.T) {
	h := NewHistory()
	h.Push(DataItem{TimestampMS: 1})
	h.Push(DataItem{TimestampMS: 2})
	snap := h.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snap) = %d, want 2", len(snap))
	}
	if snap[0].TimestampMS != 1 || snap[1].TimestampMS != 2 {
		t.Errorf("snapshot order = %+v, want [1, 2]", snap)
	}
}
