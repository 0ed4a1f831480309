package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"FlareScope/internal/domain/models"
)

func newTestClassifier() *Classifier { return NewClassifier(2.0, 100) }

func TestTypeFromIntensity(t *testing.T) {
	cases := []struct {
		intensity float64
		want      models.FlareType
	}{
		{1500, models.FlareXClass},
		{1000, models.FlareMajor}, // boundary belongs to the lower class
		{600, models.FlareMajor},
		{500, models.FlareMinor},
		{150, models.FlareMinor},
		{100, models.FlareMicro},
		{75, models.FlareMicro},
		{50, models.FlareNano},
		{5, models.FlareNano},
		{0, models.FlareNano},
	}
	for _, tc := range cases {
		if got := TypeFromIntensity(tc.intensity); got != tc.want {
			t.Errorf("TypeFromIntensity(%v) = %v, want %v", tc.intensity, got, tc.want)
		}
	}
}

func TestNanoflarePredicate(t *testing.T) {
	c := newTestClassifier()
	cases := []struct {
		name      string
		event     models.FlareEvent
		want      bool
		wantConf  float64
	}{
		{"high alpha", models.FlareEvent{Alpha: 3.0, Intensity: 200, FlareType: models.FlareMinor}, true, 1.0},
		{"negative alpha", models.FlareEvent{Alpha: -2.5, Intensity: 200, FlareType: models.FlareMinor}, true, 1.0},
		{"low intensity", models.FlareEvent{Alpha: 1.0, Intensity: 60, FlareType: models.FlareMicro}, true, 0.5},
		{"nano class", models.FlareEvent{Alpha: 0, Intensity: 200, FlareType: models.FlareNano}, true, 0},
		{"none", models.FlareEvent{Alpha: 1.0, Intensity: 200, FlareType: models.FlareMinor}, false, 0},
	}
	for _, tc := range cases {
		got, conf := c.Nanoflare(tc.event)
		if got != tc.want {
			t.Errorf("%s: flagged=%v, want %v", tc.name, got, tc.want)
		}
		if got && conf != tc.wantConf {
			t.Errorf("%s: confidence=%v, want %v", tc.name, conf, tc.wantConf)
		}
	}
}

func TestClassifyFillsTypeBeforePredicate(t *testing.T) {
	c := newTestClassifier()
	// intensity 5 classifies as nano, which by itself satisfies the predicate
	e := c.Classify(models.FlareEvent{Intensity: 5.0, Alpha: 0})
	if e.FlareType != models.FlareNano {
		t.Fatalf("expected nano class, got %v", e.FlareType)
	}
	if !e.IsNanoflare {
		t.Fatalf("nano-class event must be flagged")
	}

	e = c.Classify(models.FlareEvent{Intensity: 700, Alpha: 0.5})
	if e.FlareType != models.FlareMajor || e.IsNanoflare {
		t.Fatalf("unexpected classification %+v", e)
	}
}

func TestNanoflareConfidenceAbsentUnlessFlagged(t *testing.T) {
	c := newTestClassifier()

	flagged := c.Classify(models.FlareEvent{Intensity: 60, Alpha: 1.0})
	b, err := json.Marshal(flagged)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"nanoflare_confidence":0.5`) {
		t.Fatalf("flagged event must carry confidence: %s", b)
	}

	plain := c.Classify(models.FlareEvent{Intensity: 700, Alpha: 0.5})
	b, err = json.Marshal(plain)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "nanoflare_confidence") {
		t.Fatalf("unflagged event must omit confidence: %s", b)
	}
}
