package tier

import "testing"

func TestForGB(t *testing.T) {
	cases := []struct {
		ramGB int
		want  Tier
	}{
		{0, Minimal},
		{8, Minimal},
		{15, Minimal},
		{16, Compact},
		{23, Compact},
		{24, Balanced},
		{31, Balanced},
		{32, Performance},
		{63, Performance},
		{64, Advanced},
		{512, Advanced},
	}
	for _, tc := range cases {
		if got := ForGB(tc.ramGB); got != tc.want {
			t.Errorf("ForGB(%d) = %s, want %s", tc.ramGB, got, tc.want)
		}
	}
}

func TestDetect(t *testing.T) {
	info := Detect()
	if info.RAMGB <= 0 {
		t.Errorf("RAMGB = %d, want > 0", info.RAMGB)
	}
	if info.DetectedTier != ForGB(info.RAMGB) {
		t.Errorf("tier %s inconsistent with %d GB", info.DetectedTier, info.RAMGB)
	}
	if info.NumCPU <= 0 {
		t.Errorf("NumCPU = %d", info.NumCPU)
	}
}
