package main

type Settings struct {
	Port            int      `env:"PORT,default=8000"`
	JWTSecret       string   `env:"JWT_SECRET,required=true"`
	APIKeys         []string `env:"API_KEYS"`
	TokenTTLMinutes int      `env:"TOKEN_TTL_MINUTES,default=30"`
	MongoDBURI      string   `env:"MONGODB_URI"`
	BasePath        string   `env:"BASE_PATH"`
	LogEncoding     string   `env:"LOG_ENCODING,default=console"`
}
