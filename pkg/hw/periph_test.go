package hw

import (
	"strings"
	"testing"
)

func TestRescale(t *testing.T) {
	tests := []struct {
		name string
		raw  int32
		top  int
		want int
	}{
		{"zero", 0, SampleMax, 0},
		{"negative clamps to zero", -12, SampleMax, 0},
		{"mid scale", 10750, SampleMax, 21500},
		{"full scale", 32767, SampleMax, 65534},
		{"configured top clamps", 20000, 30000, 30000},
		{"below configured top", 14000, 30000, 28000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rescale(tt.raw, tt.top); got != tt.want {
				t.Errorf("rescale(%d, %d) = %d, want %d", tt.raw, tt.top, got, tt.want)
			}
		})
	}
}

func TestOpenRejectsChannel(t *testing.T) {
	_, err := Open(Options{ADCChannel: 4})
	if err == nil {
		t.Fatal("Open() succeeded with channel 4")
	}
	if strings.Contains(err.Error(), "periph host") {
		t.Skipf("no periph host: %v", err)
	}
	if !strings.Contains(err.Error(), "adc channel 4 out of range") {
		t.Errorf("Open() error = %v", err)
	}
}
