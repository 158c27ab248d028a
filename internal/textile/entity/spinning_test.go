package entity

import "testing"

func TestSpinningYieldAndWaste(t *testing.T) {
	cases := []struct {
		name      string
		input     float64
		output    float64
		wantYield float64
		wantWaste float64
	}{
		{"normal", 100, 85, 85, 15},
		{"full yield", 50, 50, 100, 0},
		{"zero input", 0, 0, 0, 0},
		{"negative input", -5, 10, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := SpinningProcess{InputFiberQty: tc.input, OutputYarnQty: tc.output}
			if got := p.Yield(); got != tc.wantYield {
				t.Errorf("Yield() = %v, want %v", got, tc.wantYield)
			}
			if got := p.Waste(); got != tc.wantWaste {
				t.Errorf("Waste() = %v, want %v", got, tc.wantWaste)
			}
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	if IsTerminalStatus(StatusPending) || IsTerminalStatus(StatusInProgress) {
		t.Error("pending and in_progress are not terminal")
	}
	if !IsTerminalStatus(StatusCompleted) || !IsTerminalStatus(StatusRejected) {
		t.Error("completed and rejected are terminal")
	}
}
