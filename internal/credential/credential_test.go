package credential

import (
	"context"
	"strings"
	"testing"
)

type fakeHashStore struct {
	hashes map[string]string
}

func (f *fakeHashStore) DeviceKeyHash(_ context.Context, deviceID string) (string, error) {
	return f.hashes[deviceID], nil
}

func TestIssueShape(t *testing.T) {
	issued, err := Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if !strings.HasPrefix(issued.DeviceID, "pi-") {
		t.Errorf("device id %q lacks pi- prefix", issued.DeviceID)
	}
	if !strings.HasPrefix(issued.Serial, "NR-") {
		t.Errorf("serial %q lacks NR- prefix", issued.Serial)
	}
	if issued.Serial != strings.ToUpper(issued.Serial) {
		t.Errorf("serial %q not uppercase", issued.Serial)
	}
	if issued.RawSecret == "" {
		t.Error("empty raw secret")
	}
	if issued.KeyHash != Hash(issued.RawSecret) {
		t.Error("key hash does not match hash of raw secret")
	}
	if issued.KeyHash == issued.RawSecret {
		t.Error("hash equals raw secret")
	}
}

func TestIssueUnique(t *testing.T) {
	a, err := Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, err := Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a.DeviceID == b.DeviceID || a.RawSecret == b.RawSecret || a.Serial == b.Serial {
		t.Error("two issued identities share material")
	}
}

func TestHashDeterministic(t *testing.T) {
	if Hash("secret") != Hash("secret") {
		t.Error("hash not deterministic")
	}
	if Hash("secret") == Hash("secret2") {
		t.Error("distinct secrets collide")
	}
	if len(Hash("secret")) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(Hash("secret")))
	}
}

func TestVerify(t *testing.T) {
	issued, err := Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	v := NewVerifier(&fakeHashStore{hashes: map[string]string{
		issued.DeviceID: issued.KeyHash,
	}})
	ctx := context.Background()

	tests := []struct {
		name     string
		deviceID string
		secret   string
		want     bool
	}{
		{"correct secret", issued.DeviceID, issued.RawSecret, true},
		{"wrong secret", issued.DeviceID, "nope", false},
		{"unknown device", "pi-unknown", issued.RawSecret, false},
		{"empty device id", "", issued.RawSecret, false},
		{"empty secret", issued.DeviceID, "", false},
		{"stored hash presented as secret", issued.DeviceID, issued.KeyHash, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(ctx, tt.deviceID, tt.secret)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify = %v, want %v", got, tt.want)
			}
		})
	}
}
