package infra

import (
	"bytes"
	"encoding/json"
	"testing"

	"rideshare/internal/types"
)

func TestFirebaseToken_Role(t *testing.T) {
	tests := []struct {
		claims map[string]interface{}
		want   types.Role
		ok     bool
	}{
		{map[string]interface{}{"role": "driver"}, types.RoleDriver, true},
		{map[string]interface{}{"role": "Passenger"}, types.RolePassenger, true},
		{map[string]interface{}{"role": "admin"}, 0, false},
		{map[string]interface{}{"role": 7}, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := (&FirebaseToken{UID: "u", Claims: tt.claims}).Role()
		if got != tt.want || ok != tt.ok {
			t.Fatalf("claims %v: got (%v, %v) want (%v, %v)", tt.claims, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn")
	log.Info("dropped")
	log.Warn("kept", "ride_id", "r1")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected one record at warn level, got %d", len(lines))
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["ride_id"] != "r1" || rec["level"] != "WARN" {
		t.Fatalf("unexpected record: %v", rec)
	}
}
