package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"bizchat.dev/console/internal/auth"
	"bizchat.dev/console/internal/client"
	"bizchat.dev/console/internal/config"
	"bizchat.dev/console/internal/gateway"
	"bizchat.dev/console/internal/store"
)

type console struct {
	auth      *client.AuthClient
	session   *client.SessionClient
	documents *client.DocumentClient
	in        *bufio.Scanner
}

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Console starting in DEBUG mode")
	}

	oneShot := flag.String("message", "", "Send a single chat message, print the reply and exit")
	flag.Parse()

	settings, err := store.NewSQLiteStore(config.AppConfig.TokenDB)
	if err != nil {
		log.Fatalf("Failed to open settings store: %v", err)
	}
	defer settings.Close()

	creds, err := auth.NewCredentials(settings)
	if err != nil {
		log.Fatalf("Failed to load credentials: %v", err)
	}

	gw := gateway.New(config.AppConfig.APIBaseURL, creds)
	c := &console{
		auth:      client.NewAuthClient(gw, creds),
		session:   client.NewSessionClient(gw),
		documents: client.NewDocumentClient(gw),
		in:        bufio.NewScanner(os.Stdin),
	}

	ctx := context.Background()

	if *oneShot != "" {
		turn, err := c.session.SendTurn(ctx, *oneShot)
		if err != nil {
			log.Fatalf("Chat failed: %v", err)
		}
		printTurn(turn)
		return
	}

	fmt.Printf("Connected to %s. Type /help for commands, /quit to exit.\n", config.AppConfig.APIBaseURL)
	if c.auth.LoggedIn() {
		fmt.Println("Using stored admin credentials. /verify checks they are still accepted.")
	}

	for {
		fmt.Print("> ")
		if !c.in.Scan() {
			break
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		c.dispatch(ctx, line)
	}
}

func (c *console) dispatch(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		c.chat(ctx, line)
		return
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		printHelp()
	case "/login":
		c.login(ctx)
	case "/logout":
		if err := c.auth.Logout(); err != nil {
			log.Printf("Logout failed: %v", err)
			return
		}
		fmt.Println("Logged out.")
	case "/verify":
		c.verify(ctx)
	case "/stats":
		c.stats(ctx)
	case "/docs":
		c.listDocuments(ctx)
	case "/upload":
		c.upload(ctx, arg)
	case "/rm":
		c.deleteDocument(ctx, arg)
	case "/wipe":
		c.clearAll(ctx)
	case "/history":
		c.history(ctx)
	case "/new":
		c.session.Clear()
		fmt.Println("Started a new conversation.")
	default:
		fmt.Printf("Unknown command %s. Type /help for the command list.\n", cmd)
	}
}

func (c *console) chat(ctx context.Context, text string) {
	turn, err := c.session.SendTurn(ctx, text)
	if err != nil {
		if errors.Is(err, client.ErrEmptyMessage) || errors.Is(err, client.ErrTurnPending) {
			return
		}
		log.Printf("Turn failed: %v", err)
		// The client already appended the apology reply; show it.
		if messages := c.session.Messages(); len(messages) > 0 {
			fmt.Println(messages[len(messages)-1].Content)
		}
		return
	}
	printTurn(turn)
}

func printTurn(turn *client.Turn) {
	fmt.Println(turn.AssistantText)
	if len(turn.Sources) > 0 {
		fmt.Println("Sources:")
		for _, source := range turn.Sources {
			fmt.Printf("  - %s\n", source)
		}
	}
}

func (c *console) login(ctx context.Context) {
	username := c.prompt("Username: ")
	password := c.prompt("Password: ")
	if err := c.auth.Login(ctx, username, password); err != nil {
		fmt.Printf("Login failed: %v\n", err)
		return
	}
	fmt.Println("Logged in.")
}

func (c *console) verify(ctx context.Context) {
	valid, err := c.auth.Verify(ctx)
	if err != nil {
		log.Printf("Verify failed: %v", err)
		return
	}
	if valid {
		fmt.Println("Token is valid.")
	} else {
		fmt.Println("Token was rejected; please /login again.")
	}
}

func (c *console) stats(ctx context.Context) {
	stats, err := c.auth.Stats(ctx)
	if err != nil {
		fmt.Printf("Could not fetch stats: %v\n", err)
		return
	}
	fmt.Printf("Documents: %d  Chats: %d  Storage: %s  Updated: %s\n",
		stats.TotalDocuments, stats.TotalChats, stats.StorageUsed,
		stats.LastUpdated.Format("2006-01-02 15:04:05"))
}

func (c *console) listDocuments(ctx context.Context) {
	docs, err := c.documents.List(ctx)
	if err != nil {
		fmt.Printf("Could not list documents: %v\n", err)
		return
	}
	if len(docs) == 0 {
		fmt.Println("No documents uploaded yet.")
		return
	}
	for _, doc := range docs {
		fmt.Printf("%-36s  %-30s  %10s  %s\n", doc.ID, doc.Filename, formatFileSize(doc.Size), doc.Status)
	}
}

func (c *console) upload(ctx context.Context, path string) {
	if path == "" {
		fmt.Println("Usage: /upload <path>")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Could not open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	result, err := c.documents.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
	} else {
		fmt.Printf("Uploaded %s (%s): %s\n", result.Filename, formatFileSize(result.Size), result.Message)
	}
	// Resync the snapshot regardless of outcome.
	c.listDocuments(ctx)
}

func (c *console) deleteDocument(ctx context.Context, id string) {
	if id == "" {
		fmt.Println("Usage: /rm <document-id>")
		return
	}
	confirmed := c.confirm(fmt.Sprintf("Delete document %s? [y/N] ", id))
	if err := c.documents.Delete(ctx, id, confirmed); err != nil {
		if errors.Is(err, client.ErrNotConfirmed) {
			fmt.Println("Cancelled.")
			return
		}
		fmt.Printf("Delete failed: %v\n", err)
		return
	}
	fmt.Println("Deleted.")
	c.listDocuments(ctx)
}

func (c *console) clearAll(ctx context.Context) {
	confirmed := c.confirm("Delete ALL documents? This cannot be undone. [y/N] ")
	if err := c.documents.ClearAll(ctx, confirmed); err != nil {
		if errors.Is(err, client.ErrNotConfirmed) {
			fmt.Println("Cancelled.")
			return
		}
		fmt.Printf("Clear-all failed: %v\n", err)
		return
	}
	fmt.Println("All documents cleared.")
	c.listDocuments(ctx)
}

func (c *console) history(ctx context.Context) {
	sessionID := c.session.SessionID()
	if sessionID == "" {
		fmt.Println("No active session yet; say something first.")
		return
	}
	history, err := c.session.History(ctx, sessionID)
	if err != nil {
		fmt.Printf("Could not fetch history: %v\n", err)
		return
	}
	for _, msg := range history.History {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
	}
}

func (c *console) prompt(label string) string {
	fmt.Print(label)
	if !c.in.Scan() {
		return ""
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *console) confirm(label string) bool {
	answer := strings.ToLower(c.prompt(label))
	return answer == "y" || answer == "yes"
}

func formatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}

func printHelp() {
	fmt.Println(`Chat: type a message and press enter.
Commands:
  /new            start a new conversation
  /history        show the server-side transcript for this session
  /login          admin login
  /logout         discard the stored admin token
  /verify         check the stored token is still accepted
  /stats          backend usage statistics
  /docs           list uploaded documents
  /upload <path>  upload a document
  /rm <id>        delete a document (asks for confirmation)
  /wipe           delete the entire corpus (asks for confirmation)
  /quit           exit`)
}
