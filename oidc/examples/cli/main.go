// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/oidc-client/internal/strutils"
	"github.com/hashicorp/oidc-client/oidc"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// List of required configuration environment variables
const (
	discoveryURI = "OIDC_DISCOVERY_URI"
	clientID     = "OIDC_CLIENT_ID"
	clientSecret = "OIDC_CLIENT_SECRET"
	port         = "OIDC_PORT"
)

const successHTML = `<!DOCTYPE html>
<html>
<body>
<p>Authentication complete. You can close this window and return to the CLI.</p>
</body>
</html>
`

type cliFlags struct {
	envFile            string
	scopes             string
	caFile             string
	insecureSkipVerify bool
	logoutRedirect     string
	logLevel           string
	attemptExp         time.Duration
}

func envConfig(envFile string) (map[string]string, error) {
	const op = "envConfig"
	// values already set in the process env take precedence over the file
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: unable to load %s: %w", op, envFile, err)
	}
	env := map[string]string{}
	for _, k := range []string{discoveryURI, clientID, clientSecret, port} {
		v := os.Getenv(k)
		if v == "" {
			return nil, fmt.Errorf("%s: %s is empty", op, k)
		}
		env[k] = v
	}
	return env, nil
}

func main() {
	var f cliFlags
	root := &cobra.Command{
		Use:          "oidc-cli",
		Short:        "Log in with an OIDC provider using the authorization code flow",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	root.Flags().StringVar(&f.envFile, "env-file", ".env", "optional file of environment variables")
	root.Flags().StringVar(&f.scopes, "scopes", "openid,profile,email", "comma separated list of scopes to request")
	root.Flags().StringVar(&f.caFile, "ca-file", "", "PEM encoded CA certificate(s) used to verify the provider")
	root.Flags().BoolVar(&f.insecureSkipVerify, "insecure-skip-verify", false, "don't verify the provider's TLS certificate")
	root.Flags().StringVar(&f.logoutRedirect, "logout-redirect", "", "redirect_uri included in the printed logout URL")
	root.Flags().StringVar(&f.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	root.Flags().DurationVar(&f.attemptExp, "timeout", 2*time.Minute, "how long to wait for the provider's redirect")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, f cliFlags) error {
	const op = "run"
	env, err := envConfig(f.envFile)
	if err != nil {
		return err
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "oidc-cli",
		Level:  hclog.LevelFromString(f.logLevel),
		Output: os.Stderr,
	})

	opts := []oidc.Option{oidc.WithLogger(logger)}
	if f.caFile != "" {
		pem, err := os.ReadFile(f.caFile)
		if err != nil {
			return fmt.Errorf("%s: unable to read CA file: %w", op, err)
		}
		opts = append(opts, oidc.WithProviderCA(string(pem)))
	}
	if f.insecureSkipVerify {
		logger.Warn("provider TLS certificates will not be verified")
		opts = append(opts, oidc.WithInsecureSkipVerify())
	}
	pc, err := oidc.NewConfig(env[discoveryURI], env[clientID], oidc.ClientSecret(env[clientSecret]), opts...)
	if err != nil {
		return err
	}
	c, err := oidc.NewClient(pc)
	if err != nil {
		return err
	}

	// handle ctrl-c while waiting for the callback
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	scopes := oidc.ScopeList(strutils.TrimStrings(strings.Split(f.scopes, ","))...)

	state, err := oidc.NewState()
	if err != nil {
		return err
	}
	redirectURL := fmt.Sprintf("http://localhost:%s/callback", env[port])
	authURL, err := c.AuthURL(ctx, "code", redirectURL, scopes, state)
	if err != nil {
		return fmt.Errorf("%s: error getting auth url: %w", op, err)
	}

	resultCh := make(chan callbackResult, 1)
	r := chi.NewRouter()
	r.Get("/callback", callback(c, redirectURL, scopes, state, logger, resultCh))

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%s", env[port]))
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	srvCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "Complete the login via your OIDC provider. Visit:\n\n    %s\n\n\n", authURL)

	// Wait for either the callback to finish, SIGINT to be received or the
	// attempt to expire
	select {
	case err := <-srvCh:
		return fmt.Errorf("%s: server closed with error: %w", op, err)
	case res := <-resultCh:
		if res.err != nil {
			return res.err
		}
		printToken(res.token)
		printClaims(res.claims)
		logoutURL, err := c.LogoutURL(ctx, f.logoutRedirect)
		if err != nil {
			// not every provider supports logout
			logger.Warn("unable to get logout url", "error", err)
			return nil
		}
		fmt.Fprintf(os.Stderr, "Logout URL:\n\n    %s\n", logoutURL)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: interrupted", op)
	case <-time.After(f.attemptExp):
		return fmt.Errorf("%s: timed out waiting for response from provider", op)
	}
}

type callbackResult struct {
	token  oidc.TokenResponse
	claims oidc.Claims
	err    error
}

// callback exchanges the code in the provider's redirect and validates the
// id_token it returns.  Only the first result is reported.
func callback(c *oidc.Client, redirectURL string, scopes oidc.Scope, state string, logger hclog.Logger, resultCh chan<- callbackResult) http.HandlerFunc {
	const op = "callback"
	return func(w http.ResponseWriter, req *http.Request) {
		report := func(res callbackResult) {
			select {
			case resultCh <- res:
			default:
			}
		}
		responseURL := redirectURL
		if req.URL.RawQuery != "" {
			responseURL += "?" + req.URL.RawQuery
		}
		tk, err := c.Exchange(req.Context(), responseURL, redirectURL, scopes, state)
		if err != nil {
			logger.Error("unable to exchange authorization code", "op", op, "error", err)
			status := http.StatusInternalServerError
			if errors.Is(err, oidc.ErrAuthentication) {
				status = http.StatusUnauthorized
			}
			http.Error(w, err.Error(), status)
			report(callbackResult{err: err})
			return
		}
		claims, err := c.ValidateToken(req.Context(), string(tk.IdToken()))
		if err != nil {
			logger.Error("id_token is not valid", "op", op, "error", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			report(callbackResult{err: err})
			return
		}
		logger.Debug("login succeeded", "op", op, "sub", claims.Subject())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(successHTML)); err != nil {
			logger.Error("error writing successful response", "op", op, "error", err)
		}
		report(callbackResult{token: tk, claims: claims})
	}
}

func printClaims(claims oidc.Claims) {
	const op = "printClaims"
	data, err := json.MarshalIndent(claims, "", "    ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s", op, err)
		return
	}
	fmt.Fprintf(os.Stderr, "IdToken claims:%s\n", data)
}

// printToken prints the token response with its tokens redacted.
func printToken(t oidc.TokenResponse) {
	const op = "printToken"
	printable := struct {
		IdToken      oidc.IdToken
		AccessToken  oidc.AccessToken
		RefreshToken oidc.RefreshToken
		TokenType    string
	}{
		IdToken:      t.IdToken(),
		AccessToken:  t.AccessToken(),
		RefreshToken: t.RefreshToken(),
		TokenType:    t.TokenType(),
	}
	data, err := json.MarshalIndent(printable, "", "    ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s", op, err)
		return
	}
	fmt.Fprintf(os.Stderr, "Token:%s\n", data)
}
