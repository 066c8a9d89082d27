package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	gojson "github.com/goccy/go-json"
)

// Test data structures
type roundRecord struct {
	Round     int     `json:"round"`
	Phase     string  `json:"phase"`
	Found     int     `json:"found"`
	Applied   int     `json:"applied"`
	Objective float64 `json:"objective"`
}

func generateRounds(n int) []*roundRecord {
	records := make([]*roundRecord, n)
	for i := 0; i < n; i++ {
		records[i] = &roundRecord{
			Round:     i + 1,
			Phase:     "redcost",
			Found:     17,
			Applied:   4,
			Objective: 100.0 - float64(i)*0.5,
		}
	}
	return records
}

// Benchmark standard library json.Marshal
func BenchmarkStdMarshal(b *testing.B) {
	records := generateRounds(100)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for _, record := range records {
			_, err := json.Marshal(record)
			if err != nil {
				b.Fatal(err)
			}
		}
	}

	b.ReportMetric(float64(len(records)*b.N), "records/op")
}

// Benchmark goccy/go-json Marshal
func BenchmarkGoccyMarshal(b *testing.B) {
	records := generateRounds(100)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for _, record := range records {
			_, err := gojson.Marshal(record)
			if err != nil {
				b.Fatal(err)
			}
		}
	}

	b.ReportMetric(float64(len(records)*b.N), "records/op")
}

// Benchmark pooled encoder
func BenchmarkPooledEncoder(b *testing.B) {
	records := generateRounds(100)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		enc := GetEncoder(&buf)

		for _, record := range records {
			if err := enc.Encode(record); err != nil {
				b.Fatal(err)
			}
		}

		PutEncoder(enc)
	}

	b.ReportMetric(float64(len(records)*b.N), "records/op")
}

// Benchmark streaming encoder
func BenchmarkStreamingEncoder(b *testing.B) {
	records := generateRounds(100)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		enc := NewStreamingEncoder(&buf, false)

		for _, record := range records {
			if err := enc.Encode(record); err != nil {
				b.Fatal(err)
			}
		}

		_ = enc.Close()
	}

	b.ReportMetric(float64(len(records)*b.N), "records/op")
}

// Test correctness against the standard library
func TestMarshalCorrectness(t *testing.T) {
	record := &roundRecord{
		Round:     3,
		Phase:     "farkas",
		Found:     8,
		Applied:   2,
		Objective: 42.5,
	}

	stdData, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}

	optData, err := Marshal(record)
	if err != nil {
		t.Fatal(err)
	}

	var stdResult, optResult map[string]interface{}
	if err := json.Unmarshal(stdData, &stdResult); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(optData, &optResult); err != nil {
		t.Fatal(err)
	}

	if stdResult["round"] != optResult["round"] {
		t.Errorf("round mismatch: %v != %v", stdResult["round"], optResult["round"])
	}
	if stdResult["phase"] != optResult["phase"] {
		t.Errorf("phase mismatch: %v != %v", stdResult["phase"], optResult["phase"])
	}
}

func TestUnmarshalRoundTrip(t *testing.T) {
	in := &roundRecord{Round: 7, Phase: "redcost", Found: 3, Applied: 3, Objective: 12.25}

	data, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out roundRecord
	if err := Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}

	if out != *in {
		t.Errorf("round trip mismatch: %+v != %+v", out, *in)
	}
}

func TestStreamingEncoderLines(t *testing.T) {
	var buf bytes.Buffer
	enc := NewStreamingEncoder(&buf, false)

	for _, record := range generateRounds(3) {
		if err := enc.Encode(record); err != nil {
			t.Fatal(err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var rec roundRecord
		if err := Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines+1, err)
		}
		if rec.Round != lines+1 {
			t.Errorf("line %d: round = %d", lines+1, rec.Round)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}
}

func TestStreamingEncoderArray(t *testing.T) {
	var buf bytes.Buffer
	enc := NewStreamingEncoder(&buf, true)

	for _, record := range generateRounds(2) {
		if err := enc.Encode(record); err != nil {
			t.Fatal(err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	var out []roundRecord
	if err := Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output not a valid JSON array: %v\n%s", err, buf.String())
	}
	if len(out) != 2 {
		t.Errorf("expected 2 records, got %d", len(out))
	}
}

func TestMarshalToWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := MarshalToWriter(&buf, map[string]int{"rounds": 12}); err != nil {
		t.Fatal(err)
	}

	var out map[string]int
	if err := Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["rounds"] != 12 {
		t.Errorf("rounds = %d", out["rounds"])
	}
}
