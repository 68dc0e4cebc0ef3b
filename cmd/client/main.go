package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/client/gateway"
	"github.com/Teerdaveni2002/password-vault/internal/client/session"
	"github.com/Teerdaveni2002/password-vault/internal/client/vault"
	"github.com/Teerdaveni2002/password-vault/internal/client/workflow"
	"github.com/Teerdaveni2002/password-vault/internal/logger"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

var (
	version   string
	buildDate string
)

// app bundles the client core for the shell commands.
type app struct {
	session  *session.AuthSession
	vault    *vault.Client
	workflow *workflow.Workflow
	scanner  *bufio.Scanner
}

func (a *app) prompt(label string) string {
	fmt.Print(label)
	if !a.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(a.scanner.Text())
}

// repl runs the interactive shell loop.
func repl(a *app) {
	ctx := context.Background()

	for {
		fmt.Print("vault> ")
		if !a.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(a.scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, register, login, logout, whoami, list, add, get <id>, delete <id>, share <id>, view <id>, request <id> <reason>, requests [status], approve <id> [notes], reject <id> [notes], exit")
		case "register":
			username := a.prompt("username: ")
			email := a.prompt("email: ")
			password := a.prompt("password: ")
			confirm := a.prompt("confirm password: ")
			user, err := a.session.Register(ctx, username, email, password, confirm)
			if err != nil {
				fmt.Println("register failed:", err)
				continue
			}
			fmt.Printf("registered as %s (%s)\n", user.Username, user.Role)
		case "login":
			username := a.prompt("username: ")
			password := a.prompt("password: ")
			user, err := a.session.Login(ctx, username, password)
			if err != nil {
				fmt.Println("login failed:", err)
				continue
			}
			fmt.Printf("logged in as %s (%s)\n", user.Username, user.Role)
		case "logout":
			a.session.Logout(ctx)
			fmt.Println("logged out")
		case "whoami":
			user, ok := a.session.CurrentIdentity()
			if !ok {
				var err error
				if user, err = a.session.RefreshIdentity(ctx); err != nil {
					fmt.Println("not logged in")
					continue
				}
			}
			fmt.Printf("%s (%s)\n", user.Username, user.Role)
		case "list":
			page, err := a.vault.List(ctx, 1, "")
			if err != nil {
				fmt.Println("list failed:", err)
				continue
			}
			fmt.Printf("%d secret(s):\n", page.Count)
			for _, sec := range page.Results {
				shared := ""
				if sec.IsShared {
					shared = " [shared]"
				}
				fmt.Printf("  %s  %s (%s)%s\n", sec.ID, sec.Title, sec.Username, shared)
			}
		case "add":
			in := models.SecretInput{
				Title:    a.prompt("title: "),
				Username: a.prompt("username: "),
				Password: a.prompt("password: "),
				URL:      a.prompt("url (optional): "),
				Notes:    a.prompt("notes (optional): "),
				Category: a.prompt("category (optional): "),
			}
			sec, err := a.vault.Create(ctx, in)
			if err != nil {
				fmt.Println("add failed:", err)
				continue
			}
			fmt.Println("created secret", sec.ID)
		case "get":
			if len(args) < 2 {
				fmt.Println("Usage: get <id>")
				continue
			}
			sec, err := a.vault.Get(ctx, args[1])
			if err != nil {
				fmt.Println("get failed:", err)
				continue
			}
			b, _ := json.MarshalIndent(sec, "", "  ")
			fmt.Println(string(b))
		case "delete":
			if len(args) < 2 {
				fmt.Println("Usage: delete <id>")
				continue
			}
			if err := a.vault.Delete(ctx, args[1]); err != nil {
				fmt.Println("delete failed:", err)
				continue
			}
			fmt.Println("secret deleted")
		case "share":
			if len(args) < 2 {
				fmt.Println("Usage: share <id>")
				continue
			}
			if _, err := a.vault.Share(ctx, args[1]); err != nil {
				fmt.Println("share failed:", err)
				continue
			}
			fmt.Println("secret shared")
		case "view":
			if len(args) < 2 {
				fmt.Println("Usage: view <id>")
				continue
			}
			plain, err := a.workflow.RetrievePlaintext(ctx, args[1])
			if errors.Is(err, apperrs.ErrPlaintextUnavailable) {
				fmt.Println("no approved request for this secret; file one with: request", args[1], "<reason>")
				continue
			}
			if err != nil {
				fmt.Println("view failed:", err)
				continue
			}
			fmt.Println("password:", plain.Password)
		case "request":
			if len(args) < 3 {
				fmt.Println("Usage: request <secretId> <reason>")
				continue
			}
			req, err := a.workflow.Create(ctx, args[1], strings.Join(args[2:], " "))
			if err != nil {
				fmt.Println("request failed:", err)
				continue
			}
			fmt.Printf("request %s filed (%s)\n", req.ID, req.Status)
		case "requests":
			status := models.RequestStatus("")
			if len(args) > 1 {
				status = models.RequestStatus(args[1])
			}
			requests, err := a.workflow.ListByStatus(ctx, status)
			if err != nil {
				fmt.Println("requests failed:", err)
				continue
			}
			for _, req := range requests {
				fmt.Printf("  %s  secret=%s  %s  %q\n", req.ID, req.SecretID, req.Status, req.Reason)
			}
			if len(requests) == 0 {
				fmt.Println("  (none)")
			}
		case "approve", "reject":
			if len(args) < 2 {
				fmt.Printf("Usage: %s <requestId> [notes]\n", args[0])
				continue
			}
			notes := strings.Join(args[2:], " ")
			var req models.AccessRequest
			var err error
			if args[0] == "approve" {
				req, err = a.workflow.Approve(ctx, args[1], notes)
			} else {
				req, err = a.workflow.Reject(ctx, args[1], notes)
			}
			if err != nil {
				fmt.Printf("%s failed: %v\n", args[0], err)
				continue
			}
			fmt.Printf("request %s is now %s\n", req.ID, req.Status)
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL   string
		tokenFile string
		timeout   time.Duration
		logLevel  string
		showVer   bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&tokenFile, "tokens", "tokens.json", "path to the persisted credential pair")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	flag.StringVar(&logLevel, "log", "warn", "log level")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Password Vault Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	if err := log.Init(logLevel); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	store := session.NewTokenStore(tokenFile)
	if err := store.Load(); err != nil {
		log.Log.Warn("failed to load persisted tokens", zap.Error(err))
	}

	client := &http.Client{Timeout: timeout}
	gw := gateway.New(client, baseURL, store, log.Log)
	vaultClient := vault.NewClient(gw)

	a := &app{
		session:  session.NewAuthSession(gw, store, log.Log),
		vault:    vaultClient,
		workflow: workflow.New(gw, vaultClient, log.Log),
		scanner:  bufio.NewScanner(os.Stdin),
	}
	repl(a)
}
