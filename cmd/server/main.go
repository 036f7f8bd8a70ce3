package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/docker/libtrust"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/forgegate/registry-auth/auth"
	"github.com/forgegate/registry-auth/auth/authz"
	jwtauth "github.com/forgegate/registry-auth/auth/token/jwt"
	"github.com/forgegate/registry-auth/config"
	"github.com/forgegate/registry-auth/pkg/metrics"
)

func init() {
	jwt.MarshalSingleStringAsArray = false
}

func main() {
	var (
		configFile string
		addr       string
		debug      bool

		issuer     string
		pkFile     string
		service    string
		expiration time.Duration

		cert    string
		certKey string
	)

	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file")
	flag.StringVar(&addr, "addr", "localhost:8080", "Address to listen on")
	flag.BoolVar(&debug, "debug", false, "Debug mode")

	flag.StringVar(&issuer, "issuer", "registry-token-server", "Issuer string for tokens")
	flag.StringVar(&pkFile, "key", "", "Private key file (overrides the configured issuer)")
	flag.StringVar(&service, "service", "container_registry", "Audience for internally issued tokens")
	flag.DurationVar(&expiration, "expiration", jwtauth.DefaultExpiration, "Token expiration")

	flag.StringVar(&cert, "tlscert", "", "Certificate file for TLS")
	flag.StringVar(&certKey, "tlskey", "", "Certificate key for TLS")

	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	if debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
	}

	file, err := os.ReadFile(configFile)
	if err != nil {
		logger.Sugar().Fatalf("Error reading config file %s: %v", configFile, err)
	}

	var cfg config.Config

	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		logger.Sugar().Fatalf("Error parsing config file %s: %v", configFile, err)
	}

	err = cfg.Validate()
	if err != nil {
		logger.Sugar().Fatalf("Invalid configuration: %v", err)
	}

	authenticator, err := cfg.Authenticator.Config.CreateCredentialAuthenticator()
	if err != nil {
		logger.Sugar().Fatalf("Error creating authenticator: %v", err)
	}

	projectStore, err := cfg.Store.Config.CreateStore()
	if err != nil {
		logger.Sugar().Fatalf("Error creating store: %v", err)
	}

	var tokenIssuer auth.AccessTokenIssuer

	if pkFile != "" {
		signingKey, err := libtrust.LoadKeyFile(pkFile)
		if err != nil {
			logger.Sugar().Fatalf("Error loading key file %s: %v", pkFile, err)
		}
		logger.Sugar().Debugf("Loaded private key with id %s", signingKey.KeyID())

		tokenIssuer = jwtauth.NewAccessTokenIssuer(issuer, signingKey, expiration)
	} else {
		tokenIssuer, err = cfg.AccessTokenIssuer.Config.CreateAccessTokenIssuer()
		if err != nil {
			logger.Sugar().Fatalf("Error creating access token issuer: %v", err)
		}
	}

	m := metrics.New("registry_auth")

	tokenService := auth.TokenServiceImpl{
		Authenticator: authenticator,
		Authorizer:    authz.NewResolver(projectStore, authz.WithLogger(logger)),
		Issuer:        tokenIssuer,
		Service:       service,
		Logger:        logger,
		Metrics:       m,
	}

	server := auth.TokenServer{
		Service: tokenService,
	}

	router := mux.NewRouter()
	router.Path("/token").Methods("GET").HandlerFunc(server.TokenHandler)
	router.Path("/metrics").Methods("GET").Handler(m.Handler())

	if cert == "" {
		err = http.ListenAndServe(addr, router)
	} else if certKey == "" {
		logger.Sugar().Fatalf("Must provide certificate (-tlscert) and key (-tlskey)")
	} else {
		err = http.ListenAndServeTLS(addr, cert, certKey, router)
	}

	if err != nil {
		logger.Sugar().Infof("Error serving: %v", err)
	}
}
