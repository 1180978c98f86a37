package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/mailsift/mailsift/internal/classify"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/hfapi"
	"github.com/mailsift/mailsift/internal/history"
	"github.com/mailsift/mailsift/internal/inbox"
	"github.com/mailsift/mailsift/internal/lexicon"
	"github.com/mailsift/mailsift/internal/reply"
	"github.com/mailsift/mailsift/internal/respond"
	"github.com/mailsift/mailsift/internal/triage"
	"github.com/mailsift/mailsift/internal/web"
)

var cfgFile string

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailsift",
		Short: "Mailsift - Email triage with suggested replies",
		Long: `Mailsift classifies emails as productive (needs action) or unproductive
(courtesy messages) and suggests an appropriate reply for each.

Classification runs in two tiers: Hugging Face zero-shot models when an API
key is configured, with a local heuristic analyzer as fallback. Replies come
from a text-generation model or a deterministic template bank.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mailsift/config.yaml)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a new configuration file with Hugging Face and inbox settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func classifyCmd() *cobra.Command {
	var (
		filePath  string
		localOnly bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify a single email",
		Long: `Classify one email as Produtivo or Improdutivo and print a suggested reply.

The text can be passed as an argument, piped on stdin, or read from a
.txt or .pdf file with --file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(args, filePath, localOnly, asJSON)
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "Read the email from a .txt or .pdf file")
	cmd.Flags().BoolVar(&localOnly, "local", false, "Skip the remote tier and use only the local analyzer")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")

	return cmd
}

func batchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "batch [file...]",
		Short: "Classify multiple emails in one run",
		Long: `Classify several emails at once. Each argument is a .txt or .pdf file;
one email per file. A failing item becomes an error record in the output,
the remaining items are still processed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full batch result as JSON")

	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web interface",
		Long: `Start a local web server with a dashboard for classifying emails and a
JSON API for scripts:

  POST /api/classify       {"text": "..."}
  POST /api/classify/file  multipart upload (.txt or .pdf)
  POST /api/batch          {"emails": ["...", "..."]}
  GET  /api/metrics
  GET  /api/history

The server runs locally on your machine.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config, 8433)")

	return cmd
}

func watchCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch an IMAP inbox and classify incoming email",
		Long: `Connect to your inbox via IMAP, classify every unseen email and print the
suggested reply. With auto_reply enabled in the config the reply is sent;
with auto_archive enabled processed emails are moved to the archive folder.

Requires inbox configuration in config.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Process unseen emails once and exit")

	return cmd
}

func statusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show classification history and statistics",
		Long:  "Display recent classifications and overall statistics from the local database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent classifications to show")

	return cmd
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("📬 Mailsift Configuration Setup")
	fmt.Println("================================")
	fmt.Println()

	cfg := &config.Config{}

	fmt.Println("🤖 Hugging Face (remote classification tier)")
	fmt.Println("  Leave the token empty to run fully offline with the local analyzer.")
	fmt.Println()

	token := prompt(reader, "  API token (optional): ")
	if token != "" {
		cfg.HuggingFace.Enabled = true
		cfg.HuggingFace.APIKey = token
	}

	fmt.Println()
	fmt.Println("📥 Inbox watching (optional)")
	fmt.Println()

	if strings.EqualFold(prompt(reader, "  Watch an IMAP inbox? (y/N): "), "y") {
		cfg.Inbox.Enabled = true
		cfg.Inbox.Provider = prompt(reader, "  Provider (gmail/outlook/imap): ")
		if cfg.Inbox.Provider == "imap" {
			cfg.Inbox.Server = prompt(reader, "  IMAP server: ")
		}
		cfg.Inbox.Email = prompt(reader, "  Email address: ")
		cfg.Inbox.Password = prompt(reader, "  App password: ")
	}

	cfg.ApplyDefaults()

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✅ Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit the config file if needed")
	fmt.Println("  2. Run 'mailsift classify \"Preciso de ajuda com o sistema\"' to try it out")
	fmt.Println("  3. Run 'mailsift serve' for the web dashboard")

	return nil
}

// buildEngine wires the full triage pipeline from config. A nil store is
// allowed; history is then kept in memory only.
func buildEngine(cfg *config.Config, localOnly bool, store *history.Store) *triage.Engine {
	table := lexicon.New(cfg.Lexicon.ProductiveWords, cfg.Lexicon.UnproductiveWords)
	local := classify.NewLocal(table)

	var remote *classify.Remote
	var textGen respond.TextGenerator
	if cfg.HuggingFace.Enabled && !localOnly {
		client := hfapi.NewClient(
			cfg.HuggingFace.APIKey,
			time.Duration(cfg.HuggingFace.TimeoutSec)*time.Second,
			time.Duration(cfg.HuggingFace.ModelLoadWaitSec)*time.Second,
		)
		remote = classify.NewRemote(client, cfg.HuggingFace.Models)
		textGen = hfapi.NewGenerator(client, cfg.HuggingFace.GenerationModel)
	}

	var classifier *classify.Engine
	if remote != nil {
		classifier = classify.NewEngine(remote, local, cfg.Limits.MinTextLength)
	} else {
		classifier = classify.NewEngine(nil, local, cfg.Limits.MinTextLength)
	}

	generator := respond.New(textGen)
	return triage.NewEngine(classifier, generator, cfg.Limits, store)
}

func loadConfigOrDefaults() *config.Config {
	configPath := resolveConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		cfg, err := config.Load(configPath)
		if err == nil {
			return cfg
		}
		fmt.Fprintf(os.Stderr, "⚠️  Config exists but failed to load: %v\n", err)
	}
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func openStore(cfg *config.Config) *history.Store {
	store, err := history.NewStore(cfg.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  History database unavailable: %v\n", err)
		return nil
	}
	return store
}

func runClassify(args []string, filePath string, localOnly, asJSON bool) error {
	cfg := loadConfigOrDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	engine := buildEngine(cfg, localOnly, store)
	ctx := context.Background()

	var resp *triage.Response
	var err error

	switch {
	case filePath != "":
		resp, err = engine.ProcessFile(ctx, filePath)
	case len(args) > 0:
		resp, err = engine.Process(ctx, strings.Join(args, " "))
	default:
		stat, _ := os.Stdin.Stat()
		if stat.Mode()&os.ModeCharDevice != 0 {
			return fmt.Errorf("no input: pass text as an argument, pipe it on stdin, or use --file")
		}
		data, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			return fmt.Errorf("failed to read stdin: %w", readErr)
		}
		resp, err = engine.Process(ctx, string(data))
	}
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(resp)
	}

	printResponse(resp)
	return nil
}

func runBatch(files []string, asJSON bool) error {
	cfg := loadConfigOrDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	engine := buildEngine(cfg, false, store)

	texts := make([]string, len(files))
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			// Leave the slot empty; the batch turns it into an error record.
			fmt.Fprintf(os.Stderr, "⚠️  %s: %v\n", path, err)
			continue
		}
		texts[i] = string(data)
	}

	result := engine.ProcessBatch(context.Background(), texts)

	if asJSON {
		return printJSON(result)
	}

	fmt.Printf("📦 Batch %s\n", result.BatchID)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	for i, rec := range result.Records {
		if rec.Error != "" {
			fmt.Printf("[%d/%d] %s ❌ %s\n", i+1, result.Total, files[i], rec.Error)
			continue
		}
		fmt.Printf("[%d/%d] %s → %s (%.0f%%)\n", i+1, result.Total, files[i], rec.Category, rec.Confidence*100)
	}
	fmt.Println()
	fmt.Printf("📊 %d processed: %d ok, %d failed in %s\n", result.Total, result.Successes, result.Failures, result.Elapsed)

	return nil
}

func runServe(port int) error {
	cfg := loadConfigOrDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if port == 0 {
		port = cfg.Web.Port
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	engine := buildEngine(cfg, false, store)

	server, err := web.NewServer(port, cfg, engine, store)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	return server.Start()
}

func runWatch(once bool) error {
	cfg := loadConfigOrDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.ValidateInbox(); err != nil {
		fmt.Println("📧 Inbox watching is not configured.")
		fmt.Println()
		fmt.Println("To enable it, add the following to your config.yaml:")
		fmt.Println()
		fmt.Println("inbox:")
		fmt.Println("  enabled: true")
		fmt.Println("  provider: gmail")
		fmt.Println("  email: your-email@gmail.com")
		fmt.Println("  password: your-app-password  # Use an App Password, not your main password")
		fmt.Println()
		fmt.Println("For Gmail, you'll need to:")
		fmt.Println("  1. Enable 2-Step Verification")
		fmt.Println("  2. Generate an App Password at https://myaccount.google.com/apppasswords")
		fmt.Println("  3. Enable IMAP in Gmail settings")
		return err
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	engine := buildEngine(cfg, false, store)

	var sender reply.Sender
	if cfg.Inbox.AutoReply {
		var err error
		sender, err = reply.NewSender(cfg.Reply)
		if err != nil {
			return fmt.Errorf("failed to initialize reply sender: %w", err)
		}
	}

	monitor := inbox.NewMonitor(cfg.Inbox)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := monitor.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to inbox: %w", err)
	}
	defer monitor.Disconnect()

	if cfg.Inbox.AutoArchive {
		if err := monitor.EnsureFolderExists(cfg.Inbox.ArchiveFolder); err != nil {
			fmt.Printf("⚠️  Could not create archive folder: %v\n", err)
		}
	}

	handle := func(email inbox.Email) {
		fmt.Println()
		fmt.Printf("📨 %s — %s\n", email.From, email.Subject)

		resp, err := engine.ProcessFrom(ctx, email.FullText(), "imap")
		if err != nil {
			fmt.Printf("   ❌ %v\n", err)
			return
		}

		fmt.Printf("   %s (%.0f%%, %s)\n", resp.Category, resp.Confidence*100, resp.ConfidenceLevel)
		fmt.Printf("   💬 %s\n", resp.Reply)

		if sender != nil {
			msg := reply.Message{
				To:      email.From,
				From:    cfg.Reply.From,
				Subject: inbox.ReplySubject(email.Subject),
				Body:    resp.Reply,
			}
			result := sender.Send(ctx, msg)
			if result.Success {
				fmt.Printf("   ✉️  Reply sent\n")
			} else {
				fmt.Printf("   ⚠️  Reply failed: %v\n", result.Error)
			}
		}

		if cfg.Inbox.AutoArchive && email.UID > 0 {
			if err := monitor.Archive(email.UID, cfg.Inbox.ArchiveFolder); err != nil {
				fmt.Printf("   ⚠️  Could not archive: %v\n", err)
			}
		}
	}

	emails, err := monitor.FetchUnseenEmails(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch emails: %w", err)
	}
	if len(emails) == 0 {
		fmt.Println("No unseen emails.")
	}
	for _, email := range emails {
		handle(email)
	}

	if once {
		return nil
	}

	err = monitor.Watch(ctx, handle)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

func runStatus(limit int) error {
	cfg := loadConfigOrDefaults()

	store, err := history.NewStore(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("📊 Mailsift Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Printf("  Total processed: %d\n", stats.Total)
	fmt.Printf("  Produtivo:       %d\n", stats.Productive)
	fmt.Printf("  Improdutivo:     %d\n", stats.Unproductive)
	fmt.Printf("  Errors:          %d\n", stats.Errors)
	fmt.Printf("  Avg processing:  %.0fms\n", stats.AvgProcessingMs)

	records, err := store.Recent(limit)
	if err != nil {
		return fmt.Errorf("failed to get recent classifications: %w", err)
	}

	if len(records) > 0 {
		fmt.Println()
		fmt.Printf("📜 Recent (last %d)\n", limit)
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		for _, r := range records {
			icon := "🟢"
			if r.Category == string(classify.CategoryUnproductive) {
				icon = "🟡"
			}
			fmt.Printf("%s %s - %s (%.0f%%, %s)\n",
				icon,
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.Category,
				r.Confidence*100,
				r.Method,
			)
			if r.Excerpt != "" {
				fmt.Printf("   %s\n", r.Excerpt)
			}
		}
	}

	return nil
}

func printResponse(resp *triage.Response) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📋 Category:   %s\n", resp.Category)
	fmt.Printf("🎯 Confidence: %.0f%% (%s)\n", resp.Confidence*100, resp.ConfidenceLevel)
	fmt.Printf("🧠 Model:      %s\n", resp.ModelUsed)
	fmt.Printf("⏱  Time:       %s\n", resp.ProcessingTime)
	fmt.Println()
	fmt.Println("💬 Suggested reply:")
	fmt.Println()
	fmt.Println(resp.Reply)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}
