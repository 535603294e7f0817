package email

// Config selects the receipt transport. Without a server token receipts are
// written to the application log instead of being sent.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"receipts@localhost"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@localhost"`
	ProductName          string `env:"RECEIPT_PRODUCT_NAME" envDefault:"Meterkit"`
}

func (c Config) PostmarkEnabled() bool { return c.PostmarkServerToken != "" }
