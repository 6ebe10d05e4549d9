// -----------------------------------------------------------------------
// DMV Form Target - versioned selector contract for the external form
// -----------------------------------------------------------------------

package automation

// FormSelectors is the fixed, versioned set of field selectors on the
// release-of-liability form. This is a contract with a third party: if the
// DMV changes its form, these break. That fragility is known and accepted;
// keeping every selector in one place is the mitigation.
type FormSelectors struct {
	SellerName      string
	SellerAddress   string
	SellerCity      string
	SellerState     string
	SellerZip       string
	SellerIsCompany string

	BuyerFirstName    string
	BuyerLastName     string
	BuyerIsIndividual string
	BuyerAddress      string
	BuyerCity         string
	BuyerState        string
	BuyerZip          string

	VehicleYear  string
	VehicleMake  string
	VehicleModel string
	VIN          string
	LicensePlate string

	SalePrice string
	SaleDate  string

	Submit           string
	ConfirmationBody string
}

// FormTarget is the automation target: the form's entry URL plus its
// selector set. The URL is configurable; the selectors are versioned here.
type FormTarget struct {
	URL       string
	Selectors FormSelectors
}

// DefaultFormTarget returns the current CA DMV notice-of-release form contract
func DefaultFormTarget(url string) FormTarget {
	return FormTarget{
		URL: url,
		Selectors: FormSelectors{
			SellerName:      `#sellerName`,
			SellerAddress:   `#sellerAddress`,
			SellerCity:      `#sellerCity`,
			SellerState:     `#sellerState`,
			SellerZip:       `#sellerZip`,
			SellerIsCompany: `#sellerIsCompany`,

			BuyerFirstName:    `#buyerFirstName`,
			BuyerLastName:     `#buyerLastName`,
			BuyerIsIndividual: `#buyerIsIndividual`,
			BuyerAddress:      `#buyerAddress`,
			BuyerCity:         `#buyerCity`,
			BuyerState:        `#buyerState`,
			BuyerZip:          `#buyerZip`,

			VehicleYear:  `#vehicleYear`,
			VehicleMake:  `#vehicleMake`,
			VehicleModel: `#vehicleModel`,
			VIN:          `#vehicleId`,
			LicensePlate: `#licensePlate`,

			SalePrice: `#salePrice`,
			SaleDate:  `#saleDate`,

			Submit:           `#submitRelease`,
			ConfirmationBody: `body`,
		},
	}
}
