package goesfeed

import "testing"

func TestDecodeFrameBatchedEnvelope(t *testing.T) {
	frame := []byte(`{"type":"reading","data":[` +
		`{"source":"goes-16","t":1700000000000,"short":0.5,"long":0.7},` +
		`{"source":"goes-18","t":1700000001,"short":0.1,"long":0.2}]}`)

	out := decodeFrame(frame)
	if len(out) != 2 {
		t.Fatalf("decoded %d samples", len(out))
	}
	if out[0].Time != 1700000000 {
		t.Fatalf("millisecond epoch not normalized: %d", out[0].Time)
	}
	if out[1].Source != "goes-18" || out[1].Time != 1700000001 || out[1].Long != 0.2 {
		t.Fatalf("sample %+v", out[1])
	}
}

func TestDecodeFrameBareReading(t *testing.T) {
	frame := []byte(`{"source":"goes-16","t":1700000000,"short":0.5,"long":0.7}`)

	out := decodeFrame(frame)
	if len(out) != 1 {
		t.Fatalf("decoded %d samples", len(out))
	}
	if out[0].Source != "goes-16" || out[0].Short != 0.5 {
		t.Fatalf("sample %+v", out[0])
	}
}

func TestDecodeFrameIgnoresNonReadings(t *testing.T) {
	frames := [][]byte{
		[]byte(`{"type":"subscribed","source":"goes-16"}`),
		[]byte(`{"type":"heartbeat"}`),
		[]byte(`not json`),
		[]byte(`{"type":"reading","data":[{"source":"","t":0}]}`),
	}
	for i, frame := range frames {
		if out := decodeFrame(frame); len(out) != 0 {
			t.Fatalf("frame %d decoded %d samples", i, len(out))
		}
	}
}
