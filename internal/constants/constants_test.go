package constants

import (
	"testing"
)

func TestPostGet(t *testing.T) {
	if readOnlyConstants == nil {
		t.Error("Expected readOnlyConstants to be set by init() prior to me")
	}
}

// TestValues tests that at least a few of the constants have been
// initialized. Too tiresome to test them all and obviously of limited
// value.
func TestValues(t *testing.T) {
	consts := Get()
	if len(consts.FindProgramName) == 0 {
		t.Error("consts.FindProgramName should be set but it's zero length")
	}
	if len(consts.GrabProgramName) == 0 {
		t.Error("consts.GrabProgramName should be set but it's zero length")
	}

	if consts.DefaultMaxConn == 0 {
		t.Error("consts.DefaultMaxConn should be set but it's zero")
	}
	if consts.MaxJudgeBodyBytes == 0 {
		t.Error("consts.MaxJudgeBodyBytes should be set but it's zero")
	}
	if len(consts.ViaHeader) == 0 {
		t.Error("consts.ViaHeader should be set but it's zero length")
	}
}
