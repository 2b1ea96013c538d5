package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/nordauth/accountsdk/pkg/accountsdk"
	"github.com/nordauth/accountsdk/pkg/slogx"
	"github.com/nordauth/accountsdk/pkg/storage"
)

// config is read from the environment, with an optional .env file for
// local development.
type config struct {
	Issuer      string `env:"ACCOUNT_ISSUER,required"`
	ClientID    string `env:"ACCOUNT_CLIENT_ID,required"`
	RedirectURI string `env:"ACCOUNT_REDIRECT_URI,required"`
	MFA         string `env:"ACCOUNT_MFA"` // "otp" or "sms", empty for none

	SessionFile string `env:"ACCOUNT_SESSION_FILE" envDefault:"accountcli.db"`
	Env         string `env:"ENV" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
}

const usage = `usage: accountcli <command>

commands:
  login       start a browser login and finish it from the pasted redirect
  simplified  log in by reusing another client's session from the store
  resume      print the persisted user, refreshing nothing
  refresh     force a token refresh for the persisted user
  logout      drop the persisted session
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string) error {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	slogx.New(slogx.Config{
		Service: "accountcli",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	store, err := storage.OpenBoltStore(cfg.SessionFile)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	client := accountsdk.NewClient(accountsdk.Config{
		Issuer:      cfg.Issuer,
		ClientID:    cfg.ClientID,
		RedirectURI: cfg.RedirectURI,
	}, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "login":
		return login(ctx, client, accountsdk.MFAType(cfg.MFA))
	case "simplified":
		return simplifiedLogin(ctx, client)
	case "resume":
		return resume(client)
	case "refresh":
		return refresh(ctx, client)
	case "logout":
		return logout(client)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func login(ctx context.Context, client *accountsdk.Client, mfa accountsdk.MFAType) error {
	loginURL, err := client.LoginURL(accountsdk.LoginOptions{MFA: mfa})
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in your browser:")
	fmt.Println()
	fmt.Println("  " + loginURL)
	fmt.Println()
	fmt.Fprint(os.Stderr, "Paste the redirect URL you landed on: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return fmt.Errorf("no input")
	}

	user, err := client.HandleAuthenticationResponse(ctx, scanner.Text())
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s\n", user.UUID())
	return nil
}

func simplifiedLogin(ctx context.Context, client *accountsdk.Client) error {
	user, err := client.PerformSimplifiedLogin(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s\n", user.UUID())
	return nil
}

func resume(client *accountsdk.Client) error {
	user, err := client.ResumeLastLoggedInUser()
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("Nobody is logged in.")
		return nil
	}

	fmt.Printf("Logged in as %s\n", user.UUID())
	return nil
}

func refresh(ctx context.Context, client *accountsdk.Client) error {
	user, err := client.ResumeLastLoggedInUser()
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("nobody is logged in")
	}

	if err := client.RefreshTokens(ctx, user); err != nil {
		return err
	}

	fmt.Println("Tokens refreshed.")
	return nil
}

func logout(client *accountsdk.Client) error {
	user, err := client.ResumeLastLoggedInUser()
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("Nobody is logged in.")
		return nil
	}

	if err := user.Logout(); err != nil {
		return err
	}

	fmt.Println("Logged out.")
	return nil
}
