package paymentprovider

// Metadata возвращается шлюзом в вебхуке без изменений и связывает оплату с пользователем.
type Metadata struct {
	UserID int64  `json:"user_id"`
	Plan   string `json:"plan"`
}

// CheckoutRequest тело запроса POST /checkouts Chargily Pay V2.
type CheckoutRequest struct {
	Amount     int      `json:"amount"`
	Currency   string   `json:"currency"`
	SuccessURL string   `json:"success_url"`
	Metadata   Metadata `json:"metadata"`
	Locale     string   `json:"locale"`
}

// CheckoutResponse часть ответа шлюза, которая нужна приложению.
type CheckoutResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
}
