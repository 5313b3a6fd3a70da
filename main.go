package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"github.com/Henri-Kulmala/ProductManager/internal/auth"
	"github.com/Henri-Kulmala/ProductManager/internal/handlers"
	"github.com/Henri-Kulmala/ProductManager/internal/producer"
	"github.com/Henri-Kulmala/ProductManager/internal/reconciler"
	"github.com/Henri-Kulmala/ProductManager/internal/repository"
)

func main() {
	log.Println("Starting Product Manager API...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	config := loadConfig()

	db, err := initDB(config)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := initRedis(config)
	if redisClient != nil {
		defer redisClient.Close()
	}

	repo := repository.NewProductRepository(db, redisClient)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Kafka is optional: without brokers the API runs, it just stops
	// announcing product changes.
	var events handlers.EventPublisher
	if config.KafkaBrokers != "" {
		productEvents, err := producer.NewProductEvents(strings.Split(config.KafkaBrokers, ","), config.KafkaProductTopic)
		if err != nil {
			log.Printf("Warning: Kafka producer unavailable, events disabled: %v", err)
		} else {
			defer productEvents.Close()
			events = productEvents
		}
	}

	handler := handlers.NewProductHandler(repo, reconciler.New(repo), events)

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Public catalog: read-only, no token required.
	r.HandleFunc("/api/public/products", handler.ListPublicProducts).Methods("GET")

	// Admin API behind the token verifier.
	api := r.PathPrefix("/api/products").Subrouter()
	if config.AuthURL != "" {
		verifier := auth.NewVerifier(config.AuthURL, config.AuthAPIKey)
		api.Use(verifier.Middleware)
	} else {
		log.Println("Warning: AUTH_URL not set, admin API is unprotected")
	}
	api.HandleFunc("", handler.ListProducts).Methods("GET")
	api.HandleFunc("", handler.CreateProduct).Methods("POST")
	api.HandleFunc("/bulk", handler.BulkImport).Methods("POST")
	api.HandleFunc("/{id}", handler.GetProduct).Methods("GET")
	api.HandleFunc("/{id}", handler.UpdateProduct).Methods("PUT")
	api.HandleFunc("/{id}", handler.DeleteProduct).Methods("DELETE")

	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(config.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	log.Printf("API listening on port %s", config.Port)
	log.Fatal(http.ListenAndServe(":"+config.Port, c.Handler(r)))
}

// Config holds application configuration
type Config struct {
	PostgresHost      string
	PostgresPort      string
	PostgresUser      string
	PostgresPass      string
	PostgresDB        string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	KafkaBrokers      string
	KafkaProductTopic string
	AuthURL           string
	AuthAPIKey        string
	AllowedOrigins    string
	Port              string
}

// loadConfig loads configuration from environment variables
func loadConfig() Config {
	return Config{
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPass:      getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:        getEnv("POSTGRES_DB", "products"),
		RedisHost:         getEnv("REDIS_HOST", ""),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", ""),
		KafkaProductTopic: getEnv("KAFKA_PRODUCT_TOPIC", "product-events"),
		AuthURL:           getEnv("AUTH_URL", ""),
		AuthAPIKey:        getEnv("AUTH_API_KEY", ""),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		Port:              getEnv("PORT", "8080"),
	}
}

// initDB initializes the database connection
func initDB(config Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.PostgresHost, config.PostgresPort, config.PostgresUser, config.PostgresPass, config.PostgresDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			log.Println("Database connection established")
			return db, nil
		}
		log.Printf("Waiting for database... (%d/30)", i+1)
		time.Sleep(2 * time.Second)
	}

	return nil, fmt.Errorf("database connection timeout")
}

// initRedis initializes the Redis client, or returns nil when no host is
// configured so the repository runs without its cache.
func initRedis(config Config) *redis.Client {
	if config.RedisHost == "" {
		log.Println("REDIS_HOST not set, running without cache")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.RedisHost, config.RedisPort),
		Password: config.RedisPassword,
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: Redis connection failed, continuing without cache: %v", err)
		client.Close()
		return nil
	}
	log.Println("Redis connection established")
	return client
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
