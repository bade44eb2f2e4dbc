package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting. It is loaded once at startup and handed
// to the components that need it; nothing reads the environment afterwards.
type Config struct {
	Port        string `envconfig:"PORT" default:"5000"`
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	MongoURI    string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB     string `envconfig:"MONGO_DB" default:"pharmacy"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `envconfig:"VAPID_SUBJECT" default:"mailto:info@karanhomeopharmacy.com"`

	SendgridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	EmailSender    string `envconfig:"EMAIL_SENDER"`

	UploadDir string `envconfig:"UPLOAD_DIR" default:"uploads"`
}

// Load reads a .env file if one exists, then parses the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether error responses may carry internal detail.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// AllowedOrigins splits CORS_ORIGINS into the list the CORS middleware expects.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
