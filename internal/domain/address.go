package domain

// Address is the normalized address shape used on the Delyva side.
// HighLevel sends "zip" where Delyva expects "postcode" and "address" where
// Delyva expects "address1"; Normalize resolves those aliases with a fixed
// precedence so the translation happens exactly once.
type Address struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// RawAddress is an address as received from HighLevel, with every alias
// observed in the wild.
type RawAddress struct {
	Address1 string `json:"address1"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// Normalize resolves field aliases, preferring the Delyva-native name, and
// defaults the country when absent. The default country is deployment
// configuration (MY in the observed market), not a universal constant.
func (r RawAddress) Normalize(defaultCountry string) Address {
	addr := Address{
		Address1: r.Address1,
		City:     r.City,
		State:    r.State,
		Postcode: r.Postcode,
		Country:  r.Country,
		Name:     r.Name,
		Phone:    r.Phone,
		Email:    r.Email,
	}
	if addr.Address1 == "" {
		addr.Address1 = r.Address
	}
	if addr.Postcode == "" {
		addr.Postcode = r.Zip
	}
	if addr.Country == "" {
		addr.Country = defaultCountry
	}
	return addr
}

// LineItem is one order line as HighLevel sends it to the rate callback.
type LineItem struct {
	Name     string  `json:"name" validate:"required"`
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Grams    float64 `json:"grams" validate:"min=0"`
}

// Rate is one shipping option in the shape HighLevel expects back from the
// rate callback. EstimatedDays is a best-effort heuristic, not carrier data.
type Rate struct {
	ServiceName   string  `json:"serviceName"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	EstimatedDays *int    `json:"estimatedDays"`
}

// MinChargeableWeightKg is the floor applied to quote requests; Delyva
// rejects zero-weight parcels.
const MinChargeableWeightKg = 0.1

// ChargeableWeightKg sums item weights in grams, converts to kilograms and
// applies the minimum floor.
func ChargeableWeightKg(items []LineItem) float64 {
	var grams float64
	for _, item := range items {
		grams += item.Grams * float64(item.Quantity)
	}
	kg := grams / 1000
	if kg <= 0 {
		return MinChargeableWeightKg
	}
	return kg
}
