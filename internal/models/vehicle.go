// -----------------------------------------------------------------------
// Vehicle Release Job - persisted DMV release state for a sold vehicle
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// ReleaseStatus tracks one vehicle's release-of-liability lifecycle.
// Transitions are pending -> processing -> submitted|failed; the automation
// core never moves a job backwards and never creates or deletes vehicles.
type ReleaseStatus string

const (
	ReleaseStatusPending    ReleaseStatus = "pending"
	ReleaseStatusProcessing ReleaseStatus = "processing"
	ReleaseStatusSubmitted  ReleaseStatus = "submitted"
	ReleaseStatusFailed     ReleaseStatus = "failed"
)

// VehicleStatusSold is the inventory status a vehicle must carry before
// a release can be filed. The inventory system owns this field.
const VehicleStatusSold = "sold"

// VehicleReleaseJob is the vehicle record as the release automation sees it.
// The inventory system creates and updates these rows when a vehicle is
// marked sold; the automation only writes the dmv_* fields.
type VehicleReleaseJob struct {
	ID           string `json:"id" badgerhold:"key"`
	Year         int    `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	VIN          string `json:"vehicle_id"`
	LicensePlate string `json:"license_plate,omitempty"`

	BuyerFirstName string `json:"buyer_first_name"`
	BuyerLastName  string `json:"buyer_last_name"`
	BuyerAddress   string `json:"buyer_address,omitempty"`
	BuyerCity      string `json:"buyer_city,omitempty"`
	BuyerState     string `json:"buyer_state,omitempty"`
	BuyerZip       string `json:"buyer_zip,omitempty"`

	SalePrice float64 `json:"sale_price,omitempty"`
	SaleDate  string  `json:"sale_date,omitempty"`

	Status                string        `json:"status"` // Inventory status ("sold", etc.), owned by the inventory system
	DMVStatus             ReleaseStatus `json:"dmv_status" badgerholdIndex:"DMVStatus"`
	DMVConfirmationNumber string        `json:"dmv_confirmation_number,omitempty"`
	DMVSubmittedAt        *time.Time    `json:"dmv_submitted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EligibleForRelease reports whether the automation may process this vehicle.
// Eligibility is re-checked at load time, never assumed from caller input.
func (v *VehicleReleaseJob) EligibleForRelease() bool {
	return v.Status == VehicleStatusSold &&
		v.DMVStatus == ReleaseStatusPending &&
		v.BuyerFirstName != "" &&
		v.BuyerLastName != ""
}

// BuyerFullName returns the buyer's display name
func (v *VehicleReleaseJob) BuyerFullName() string {
	if v.BuyerFirstName == "" {
		return v.BuyerLastName
	}
	if v.BuyerLastName == "" {
		return v.BuyerFirstName
	}
	return v.BuyerFirstName + " " + v.BuyerLastName
}

// Description returns a short human-readable vehicle description for logs
func (v *VehicleReleaseJob) Description() string {
	if v.Year > 0 {
		return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
	}
	return fmt.Sprintf("%s %s", v.Make, v.Model)
}
