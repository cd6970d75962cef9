package models

// CheckoutSession is a hosted payment session created at the checkout gateway
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
