package models

import "testing"

func TestEligibleForRelease(t *testing.T) {
	base := func() *VehicleReleaseJob {
		return &VehicleReleaseJob{
			ID:             "veh-1",
			Status:         VehicleStatusSold,
			DMVStatus:      ReleaseStatusPending,
			BuyerFirstName: "Dana",
			BuyerLastName:  "Lee",
		}
	}

	tests := []struct {
		name   string
		mutate func(*VehicleReleaseJob)
		want   bool
	}{
		{"sold and pending with buyer", func(v *VehicleReleaseJob) {}, true},
		{"not sold", func(v *VehicleReleaseJob) { v.Status = "available" }, false},
		{"already submitted", func(v *VehicleReleaseJob) { v.DMVStatus = ReleaseStatusSubmitted }, false},
		{"processing", func(v *VehicleReleaseJob) { v.DMVStatus = ReleaseStatusProcessing }, false},
		{"failed requires resubmission", func(v *VehicleReleaseJob) { v.DMVStatus = ReleaseStatusFailed }, false},
		{"missing buyer first name", func(v *VehicleReleaseJob) { v.BuyerFirstName = "" }, false},
		{"missing buyer last name", func(v *VehicleReleaseJob) { v.BuyerLastName = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := base()
			tt.mutate(v)
			if got := v.EligibleForRelease(); got != tt.want {
				t.Errorf("EligibleForRelease = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuyerFullName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Dana", "Lee", "Dana Lee"},
		{"", "Lee", "Lee"},
		{"Dana", "", "Dana"},
		{"", "", ""},
	}

	for _, tt := range tests {
		v := &VehicleReleaseJob{BuyerFirstName: tt.first, BuyerLastName: tt.last}
		if got := v.BuyerFullName(); got != tt.want {
			t.Errorf("BuyerFullName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestDescription(t *testing.T) {
	v := &VehicleReleaseJob{Year: 2021, Make: "Honda", Model: "Civic"}
	if got := v.Description(); got != "2021 Honda Civic" {
		t.Errorf("Description = %q", got)
	}

	v = &VehicleReleaseJob{Make: "Honda", Model: "Civic"}
	if got := v.Description(); got != "Honda Civic" {
		t.Errorf("Description without year = %q", got)
	}
}

func TestProgressEventTerminal(t *testing.T) {
	if !NewCompleteEvent("veh-1", "done", "AB-1").Terminal() {
		t.Error("complete event not terminal")
	}
	if !NewErrorEvent("veh-1", "boom", 3, 12).Terminal() {
		t.Error("error event not terminal")
	}
	if NewProgressEvent("veh-1", "step", 1, 12).Terminal() {
		t.Error("progress event reported terminal")
	}
	if NewScreenshotEvent("veh-1", "step", 3, 12, []byte("png")).Terminal() {
		t.Error("screenshot event reported terminal")
	}
}

func TestScreenshotEventEncoding(t *testing.T) {
	ev := NewScreenshotEvent("veh-1", "checkpoint", 3, 12, []byte{0x89, 0x50, 0x4e, 0x47})
	const want = "data:image/png;base64,iVBORw=="
	if ev.Screenshot != want {
		t.Errorf("screenshot = %q, want %q", ev.Screenshot, want)
	}
}
