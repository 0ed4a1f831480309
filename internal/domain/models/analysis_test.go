package models

import (
	"encoding/json"
	"testing"
)

func TestAnalysisOutcomeEnvelope(t *testing.T) {
	res := &AnalysisResult{Success: true, Metadata: Metadata{FileProcessed: "goes.csv"}}

	b, err := json.Marshal(AnalysisOutcome{Result: res})
	if err != nil {
		t.Fatal(err)
	}
	var ok map[string]interface{}
	if err := json.Unmarshal(b, &ok); err != nil {
		t.Fatal(err)
	}
	if ok["success"] != true {
		t.Fatalf("success envelope: %s", b)
	}
	if _, present := ok["fallback_data"]; present {
		t.Fatalf("success envelope must not carry fallback_data: %s", b)
	}

	b, err = json.Marshal(AnalysisOutcome{Result: res, Err: "model error"})
	if err != nil {
		t.Fatal(err)
	}
	var failed struct {
		Success      bool            `json:"success"`
		Error        string          `json:"error"`
		FallbackData *AnalysisResult `json:"fallback_data"`
	}
	if err := json.Unmarshal(b, &failed); err != nil {
		t.Fatal(err)
	}
	if failed.Success || failed.Error != "model error" || failed.FallbackData == nil {
		t.Fatalf("failure envelope: %s", b)
	}
	if failed.FallbackData.Metadata.FileProcessed != "goes.csv" {
		t.Fatalf("fallback payload lost: %s", b)
	}
}

func TestEnergyAnalysisErrorOnWire(t *testing.T) {
	b, err := json.Marshal(EnergyAnalysis{Err: "No energy data available"})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"error":"No energy data available"}` {
		t.Fatalf("error form: %s", b)
	}

	var back EnergyAnalysis
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Err != "No energy data available" {
		t.Fatalf("round trip lost error: %+v", back)
	}

	good := EnergyAnalysis{TotalEnergy: 1e29, PowerLawIndex: -1.8}
	b, err = json.Marshal(good)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Err != "" || back.TotalEnergy != 1e29 {
		t.Fatalf("round trip: %+v", back)
	}
}

func TestWindowConfigStride(t *testing.T) {
	if got := (WindowConfig{SequenceLength: 512}).Stride(); got != 256 {
		t.Fatalf("stride %d", got)
	}
	if got := (WindowConfig{SequenceLength: 1}).Stride(); got != 1 {
		t.Fatalf("stride floor %d", got)
	}
}
