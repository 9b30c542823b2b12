package main

import (
	"log"
	"os"
	"time"

	"odonto-backend/backendapi"
	"odonto-backend/checkout"
	"odonto-backend/notify"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[BOOT] sem .env, usando variáveis do ambiente")
	}

	api := backendapi.NewClientFromEnv()
	h := checkout.NewHandler(api, notify.Log{})

	// sessões abandonadas têm o polling cancelado junto
	h.Store().StartJanitor(time.Minute, h.Controller().Teardown)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.RegisterRoutes(r)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

func allowedOrigins() []string {
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		return []string{v}
	}
	return []string{"http://localhost:5173"}
}
