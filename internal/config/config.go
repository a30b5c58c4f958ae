package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`

	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
	Auth     Auth     `envPrefix:"AUTH_"`

	Gateway   Gateway   `envPrefix:"GATEWAY_"`
	Paypal    Paypal    `envPrefix:"PAYPAL_"`
	BrainTree Braintree `envPrefix:"BRAINTREE_"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"mysql"` // mysql | sqlite
	URL    string `env:"URL"`
}

// Redis is optional. Without an address the per-record lock falls back to
// database row locks only.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type Kafka struct {
	Brokers      []string `env:"BROKERS" envSeparator:","`
	PaymentTopic string   `env:"PAYMENT_TOPIC" envDefault:"payment_succeeded"`
	RefundTopic  string   `env:"REFUND_TOPIC" envDefault:"refund_succeeded"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Gateway struct {
	Provider string `env:"PROVIDER" envDefault:"paypal"` // paypal | braintree
	Currency string `env:"CURRENCY" envDefault:"USD"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

type Braintree struct {
	Environment string `env:"ENVIRONMENT"`
	MerchantID  string `env:"MERCHANT_ID"`
	PublicKey   string `env:"PUBLIC_KEY"`
	PrivateKey  string `env:"PRIVATE_KEY"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
