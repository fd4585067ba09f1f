package screenshot

import "testing"

func TestCaptureRegionRejectsInvalidDimensions(t *testing.T) {
	tests := []struct {
		name   string
		region Region
	}{
		{name: "Zero size", region: Region{}},
		{name: "Zero width", region: Region{Width: 0, Height: 100}},
		{name: "Zero height", region: Region{Width: 100, Height: 0}},
		{name: "Negative width", region: Region{Width: -10, Height: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CaptureRegion(tt.region); err == nil {
				t.Errorf("Expected error for region %+v", tt.region)
			}
		})
	}
}
