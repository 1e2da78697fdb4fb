package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv pulls a local .env into the process environment. Missing file is
// fine in deployed environments where everything arrives via real env vars.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
}
