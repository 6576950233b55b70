package flutterwave

// CustomerName is the structured name accepted by the customers endpoint.
type CustomerName struct {
	First  string `json:"first"`
	Middle string `json:"middle,omitempty"`
	Last   string `json:"last"`
}

// CustomerPhone is the structured phone accepted by the customers endpoint.
type CustomerPhone struct {
	CountryCode string `json:"country_code"`
	Number      string `json:"number"`
}

// CustomerAddress is the optional postal address for a customer.
type CustomerAddress struct {
	City       string `json:"city"`
	Country    string `json:"country"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state"`
}

// CustomerProfile is the payload for creating or updating a customer.
type CustomerProfile struct {
	Email   string           `json:"email"`
	Name    CustomerName     `json:"name"`
	Phone   CustomerPhone    `json:"phone"`
	Address *CustomerAddress `json:"address,omitempty"`
	Meta    map[string]any   `json:"meta,omitempty"`
}

// Customer is the provider's customer record.
type Customer struct {
	ID    string        `json:"id"`
	Email string        `json:"email"`
	Name  CustomerName  `json:"name"`
	Phone CustomerPhone `json:"phone"`
}

// VirtualAccount is a dynamic virtual account issued for a customer.
type VirtualAccount struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

// envelope is the provider's standard response wrapper.
type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}
