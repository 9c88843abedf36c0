package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/avolkv/canvora/api"
	"github.com/avolkv/canvora/cache"
	redisCache "github.com/avolkv/canvora/cache/redis"
	"github.com/avolkv/canvora/mq"
	"github.com/avolkv/canvora/mq/sqsmq"
	"github.com/avolkv/canvora/store"
	"github.com/avolkv/canvora/store/dynamo"
	"golang.org/x/oauth2"
)

const (
	DynamoDBTable   = "Canvora"
	SQSCleanupQueue = "CanvoraCleanupQueue"
)

// Backing services may come up after us in dev compose setups, so connection
// attempts retry before giving up.
var startupRetries = []retry.Option{
	retry.Attempts(5),
	retry.Delay(2 * time.Second),
}

func main() {
	ctx := context.Background()
	devMode := os.Getenv("DEV_MODE") == "true"

	canvoraStore, err := retry.DoWithData(func() (store.CanvoraStore, error) {
		return dynamo.NewDynamoCanvoraStore(ctx, devMode, os.Getenv("DYNAMODB_ENDPOINT"), DynamoDBTable)
	}, startupRetries...)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	cleanupQueue, err := retry.DoWithData(func() (mq.MessageQueue, error) {
		return sqsmq.NewSQSMessageQueue(ctx, devMode, os.Getenv("SQS_ENDPOINT"), SQSCleanupQueue)
	}, startupRetries...)
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	canvoraCache, err := retry.DoWithData(func() (cache.CanvoraCache, error) {
		return redisCache.NewRedisCanvoraCache(ctx, devMode, os.Getenv("REDIS_ENDPOINT"))
	}, startupRetries...)
	if err != nil {
		log.Fatalf("Failed to create redis cache: %v", err)
	}

	var oauthConfigs = map[string]*oauth2.Config{
		"github": {
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
		},
		"google": {
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
		},
	}

	jwtSecret, err := base64.StdEncoding.DecodeString(os.Getenv("JWT_SECRET"))
	if err != nil {
		log.Fatalf("Failed to decode base64 jwtSecret: %v", err)
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	canvoraApi, err := api.NewCanvoraAPI(canvoraStore, cleanupQueue, canvoraCache, oauthConfigs, jwtSecret, shutdownCtx)
	if err != nil {
		log.Fatalf("Failed to create canvora api: %v", err)
	}

	mux := http.NewServeMux()
	canvoraApi.RegisterRoutes(mux, os.Getenv("FRONTEND_ORIGIN"))

	hostPort := "8080"
	if p := os.Getenv("HOST_PORT"); p != "" {
		hostPort = p
	}
	log.Printf("Starting server on host port: %s\n", hostPort)
	log.Fatal(http.ListenAndServe(":"+hostPort, mux))
}
