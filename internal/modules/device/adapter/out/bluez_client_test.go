package out

import "testing"

func TestDecodeHRMeasurementEightBit(t *testing.T) {
	t.Parallel()
	sample, ok := decodeHRMeasurement("AA:BB", []byte{0x00, 142})
	if !ok {
		t.Fatal("two byte value must decode")
	}
	if sample.BPM != 142 {
		t.Fatalf("bpm = %d, want 142", sample.BPM)
	}
	if sample.ContactSupported || sample.ContactDetected {
		t.Fatalf("no contact flags set, got %+v", sample)
	}
}

func TestDecodeHRMeasurementSixteenBit(t *testing.T) {
	t.Parallel()
	sample, ok := decodeHRMeasurement("AA:BB", []byte{0x01, 0x2C, 0x01})
	if !ok {
		t.Fatal("three byte value must decode")
	}
	if sample.BPM != 300 {
		t.Fatalf("bpm = %d, want 300", sample.BPM)
	}
}

func TestDecodeHRMeasurementContactBits(t *testing.T) {
	t.Parallel()
	sample, _ := decodeHRMeasurement("AA:BB", []byte{0x06, 90})
	if !sample.ContactSupported || !sample.ContactDetected {
		t.Fatalf("flags 0x06 mean supported and detected, got %+v", sample)
	}
	sample, _ = decodeHRMeasurement("AA:BB", []byte{0x04, 90})
	if !sample.ContactSupported || sample.ContactDetected {
		t.Fatalf("flags 0x04 mean supported without contact, got %+v", sample)
	}
}

func TestDecodeHRMeasurementTruncated(t *testing.T) {
	t.Parallel()
	if _, ok := decodeHRMeasurement("AA:BB", []byte{0x00}); ok {
		t.Fatal("one byte value must be rejected")
	}
	if _, ok := decodeHRMeasurement("AA:BB", []byte{0x01, 0x50}); ok {
		t.Fatal("16 bit flag with two bytes must be rejected")
	}
}
