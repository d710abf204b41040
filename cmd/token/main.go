package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/auth"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

// token prints a signed admin API token.
//
//	token -type admin -subject ops -ttl 720h
func main() {
	tokenType := flag.String("type", string(auth.TokenTypeViewer), "token type: viewer or admin")
	subject := flag.String("subject", "", "who the token is issued to")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token validity")
	flag.Parse()

	log, err := logger.NewLogger("INFO", "")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err = godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("failed to load .env", zap.Error(err))
	}

	tt, err := auth.ParseTokenType(*tokenType)
	if err != nil {
		log.Fatal("invalid token type", zap.Error(err))
	}
	if *subject == "" {
		log.Fatal("subject is required")
	}

	signer, err := auth.NewSigner(os.Getenv("API_TOKEN_SECRET"))
	if err != nil {
		log.Fatal("API_TOKEN_SECRET is not set", zap.Error(err))
	}

	token, err := signer.GenerateToken(tt, *subject, *ttl)
	if err != nil {
		log.Fatal("failed to generate token", zap.Error(err))
	}

	fmt.Println(token)
}
