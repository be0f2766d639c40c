package core

import (
	"math"
	"testing"
	"time"
)

func TestApplyProcessorOptions(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(48000), WithBlockSize(64), WithChannels(1))
	if cfg.SampleRate != 48000 {
		t.Fatalf("sample rate = %v, want 48000", cfg.SampleRate)
	}
	if cfg.BlockSize != 64 {
		t.Fatalf("block size = %d, want 64", cfg.BlockSize)
	}
	if cfg.Channels != 1 {
		t.Fatalf("channels = %d, want 1", cfg.Channels)
	}
}

func TestInvalidOptionsIgnored(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(0), WithBlockSize(-1), WithBlockSize(33), WithChannels(3), nil)
	def := DefaultProcessorConfig()
	if cfg != def {
		t.Fatalf("cfg = %#v, want %#v", cfg, def)
	}
}

func TestBlockPeriod(t *testing.T) {
	cfg := DefaultProcessorConfig()
	if got := cfg.BlockPeriod(); got != time.Millisecond {
		t.Fatalf("BlockPeriod() = %v, want 1ms", got)
	}
	if got := cfg.BlockRate(); got != 1000 {
		t.Fatalf("BlockRate() = %v, want 1000", got)
	}
}

func TestDBConversions(t *testing.T) {
	tests := []struct {
		db  float64
		lin float64
	}{
		{0, 1},
		{20, 10},
		{-20, 0.1},
		{-40, 0.01},
	}
	for _, tt := range tests {
		if got := DBToLinear(tt.db); !NearlyEqual(got, tt.lin, 1e-12) {
			t.Errorf("DBToLinear(%v) = %v, want %v", tt.db, got, tt.lin)
		}
		if got := LinearToDB(tt.lin); !NearlyEqual(got, tt.db, 1e-12) {
			t.Errorf("LinearToDB(%v) = %v, want %v", tt.lin, got, tt.db)
		}
	}
	if !math.IsInf(LinearToDB(0), -1) {
		t.Fatal("LinearToDB(0) should be -Inf")
	}
	if !math.IsNaN(LinearToDB(-1)) {
		t.Fatal("LinearToDB(-1) should be NaN")
	}
}

func TestPowerToDBFloor(t *testing.T) {
	if got := PowerToDB(0, 1e-12); got != -120 {
		t.Fatalf("PowerToDB(0) = %v, want -120", got)
	}
	if got := PowerToDB(0.5, 1e-12); !NearlyEqual(got, -3.0103, 1e-4) {
		t.Fatalf("PowerToDB(0.5) = %v", got)
	}
}

func TestClampAndFinite(t *testing.T) {
	if Clamp(5, 10, 0) != 5 || Clamp(-1, 0, 1) != 0 || Clamp(2, 0, 1) != 1 {
		t.Fatal("Clamp returned unexpected value")
	}
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) || !IsFinite(3) {
		t.Fatal("IsFinite misclassified input")
	}
	if FlushDenormals(1e-40) != 0 || FlushDenormals(0.5) != 0.5 {
		t.Fatal("FlushDenormals returned unexpected value")
	}
}
