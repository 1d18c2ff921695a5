// Prints a signed access token for local testing of the authenticated
// endpoints. Uses the JWT settings from the environment or .env.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/auth"
)

func main() {
	userID := flag.Uint("user", 2, "user id to embed in the token")
	email := flag.String("email", "test1@example.com", "email to embed in the token")
	admin := flag.Bool("admin", false, "grant admin access")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading configuration:", err)
	}

	token, err := auth.NewJWTManager(cfg.JWT).GenerateAccessToken(uint(*userID), *email, *admin)
	if err != nil {
		log.Fatal("Error generating token:", err)
	}

	fmt.Printf("User: %d (%s) admin=%t\n", *userID, *email, *admin)
	fmt.Printf("Authorization: Bearer %s\n", token)
}
