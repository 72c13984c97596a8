package device

import "testing"

func TestIsNull(t *testing.T) {
	if !IsNull(nil) {
		t.Error("nil must be null")
	}
	if !IsNull(Null) {
		t.Error("the Null sentinel must be null")
	}
}

func TestNull_IsSafeToUse(t *testing.T) {
	if Null.Name() != "" || Null.Identity() != "" {
		t.Error("Null must have empty name and identity")
	}
	if err := Null.Connect(); err != nil {
		t.Errorf("Null.Connect: %v", err)
	}
	if err := Null.Disconnect(); err != nil {
		t.Errorf("Null.Disconnect: %v", err)
	}
}
