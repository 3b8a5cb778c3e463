package main

import (
	"log"

	"github.com/joho/godotenv"

	"workfinder/internal/app"
)

// @title           WorkFinder API
// @version         1.0
// @description     Биржа фриланс-заказов: проекты, ставки, выплаты, вход через Telegram.
// @BasePath        /api
func main() {
	// .env опционален: в проде всё приходит из окружения
	if err := godotenv.Load(); err != nil {
		log.Printf("[main] .env not loaded: %v", err)
	}
	app.Run()
}
